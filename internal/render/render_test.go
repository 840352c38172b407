package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/ranker"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

func weighted(word string, count, weight int) scale.Weighted {
	return scale.Weighted{Entry: ranker.Entry{Word: word, Count: count}, Weight: weight}
}

func TestHTML(t *testing.T) {
	var b strings.Builder
	err := HTML(&b, Page{
		Name: "alice",
		Entries: []scale.Weighted{
			weighted("cat", 2, 30),
			weighted("sat", 1, 11),
			weighted("the", 3, 48),
		},
	})
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"<title>Top 3 words in alice</title>",
		`<link href="alice.css" rel="stylesheet" type="text/css">`,
		`<span style="cursor:default" class="f30" title="count: 2">cat</span>`,
		`<span style="cursor:default" class="f48" title="count: 3">the</span>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("page missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, ">cat<") > strings.Index(out, ">sat<") || strings.Index(out, ">sat<") > strings.Index(out, ">the<") {
		t.Fatalf("entries not written in the given order:\n%s", out)
	}
}

func TestHTMLEscapesWords(t *testing.T) {
	var b strings.Builder
	if err := HTML(&b, Page{Name: "x<y", Entries: []scale.Weighted{weighted("<b>", 1, 11)}}); err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if strings.Contains(b.String(), "<b>") {
		t.Fatalf("word was not escaped:\n%s", b.String())
	}
}

func TestHTMLCustomStylesheet(t *testing.T) {
	var b strings.Builder
	if err := HTML(&b, Page{Name: "alice", Stylesheet: "style.css"}); err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if !strings.Contains(b.String(), `href="style.css"`) {
		t.Fatalf("custom stylesheet not linked:\n%s", b.String())
	}
}

func TestCSS(t *testing.T) {
	var b strings.Builder
	if err := CSS(&b, scale.DefaultRange); err != nil {
		t.Fatalf("CSS: %v", err)
	}
	out := b.String()
	if got := strings.Count(out, "font-size: "); got != 38 {
		t.Fatalf("font classes = %d, want 38", got)
	}
	for _, want := range []string{
		".f11 { font-size: 11px; line-height: 11px; }",
		".f48 { font-size: 48px; line-height: 48px; }",
		".cdiv span:hover",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("stylesheet missing %q", want)
		}
	}
	if strings.Contains(out, ".f49 ") || strings.Contains(out, ".f10 ") {
		t.Fatal("stylesheet has classes outside the range")
	}
}

func TestCSSInvalidRange(t *testing.T) {
	var b strings.Builder
	for _, r := range []scale.Range{{Min: 20, Max: 20}, {Min: 1, Max: 2_000_000_000}} {
		err := CSS(&b, r)
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("CSS(%v) error = %v, want ErrInvalidArgument", r, err)
		}
		if b.Len() != 0 {
			t.Fatalf("stylesheet written for invalid range %v", r)
		}
	}
}
