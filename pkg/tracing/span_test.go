package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestChildSpansAttachToParent(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "generate", "trace-1")
	childCtx, count := StartChildSpan(ctx, "count")
	count.SetAttr("unique_words", 6)
	count.End()
	_, rank := StartChildSpan(childCtx, "rank")
	rank.End()
	root.End()

	if len(root.Children) != 1 || root.Children[0] != count {
		t.Fatalf("root children = %v, want [count]", root.Children)
	}
	if len(count.Children) != 1 || count.Children[0].TraceID != "trace-1" {
		t.Fatalf("rank span not nested under count: %+v", count.Children)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	root.Log(logger)
	out := buf.String()
	for _, want := range []string{"span=generate", "span=count", "span=rank", "unique_words=6", "depth=2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestChildSpanWithoutParentIsNoop(t *testing.T) {
	ctx := context.Background()
	got, span := StartChildSpan(ctx, "orphan")
	if span != nil {
		t.Fatalf("expected nil span without parent")
	}
	if got != ctx {
		t.Fatalf("context should be unchanged")
	}
	span.SetAttr("k", "v")
	span.End()
	span.Log(slog.Default())
}
