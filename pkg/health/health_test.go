package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func up(context.Context) error { return nil }

func down(context.Context) error { return errors.New("connection refused") }

func ready(t *testing.T, c *Checker) (int, Report) {
	t.Helper()
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	return rec.Code, report
}

func TestReadyAllUp(t *testing.T) {
	c := NewChecker()
	c.Register("store", PingCheck(pingFunc(up)))
	c.Register("cache", OptionalCheck(PingCheck(pingFunc(up))))

	code, report := ready(t, c)
	if code != http.StatusOK || report.Status != StatusUp {
		t.Fatalf("code %d status %s", code, report.Status)
	}
	if len(report.Components) != 2 {
		t.Fatalf("components = %v", report.Components)
	}
}

func TestReadyDegradedCacheStillReady(t *testing.T) {
	c := NewChecker()
	c.Register("store", PingCheck(pingFunc(up)))
	c.Register("cache", OptionalCheck(PingCheck(pingFunc(down))))

	code, report := ready(t, c)
	if code != http.StatusOK || report.Status != StatusDegraded {
		t.Fatalf("code %d status %s", code, report.Status)
	}
	if report.Components["cache"].Message != "connection refused" {
		t.Fatalf("cache component = %+v", report.Components["cache"])
	}
}

func TestReadyStoreDown(t *testing.T) {
	c := NewChecker()
	c.Register("store", PingCheck(pingFunc(down)))
	c.Register("cache", OptionalCheck(PingCheck(pingFunc(down))))

	code, report := ready(t, c)
	if code != http.StatusServiceUnavailable || report.Status != StatusDown {
		t.Fatalf("code %d status %s", code, report.Status)
	}
}

func TestKafkaCheckWithoutBrokers(t *testing.T) {
	got := KafkaCheck(nil)(context.Background())
	if got.Status != StatusDown {
		t.Fatalf("status = %s, want down", got.Status)
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
}
