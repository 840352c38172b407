// Package render writes a generated cloud as a static HTML page and the
// stylesheet that page links to.
package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
)

// Page describes one rendered cloud.
type Page struct {
	// Name is the document name shown in the title, e.g. "alice".
	Name string
	// Stylesheet is the href of the linked CSS file. Empty means NAME.css.
	Stylesheet string
	// Entries must already be in display order.
	Entries []scale.Weighted
}

func (p Page) stylesheet() string {
	if p.Stylesheet != "" {
		return p.Stylesheet
	}
	return p.Name + ".css"
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<title>Top {{.Size}} words in {{.Name}}</title>
<link href="{{.Stylesheet}}" rel="stylesheet" type="text/css">
</head>
<body>
<h2>Top {{.Size}} words in {{.Name}}</h2>
<hr>
<div class="cdiv">
<p class="cbox">
{{range .Entries}}<span style="cursor:default" class="f{{.Weight}}" title="count: {{.Count}}">{{.Word}}</span>
{{end}}</p>
</div>
</body>
</html>
`))

type pageData struct {
	Name       string
	Stylesheet string
	Size       int
	Entries    []scale.Weighted
}

// HTML writes the cloud page. Words and the document name are escaped.
func HTML(w io.Writer, p Page) error {
	data := pageData{
		Name:       p.Name,
		Stylesheet: p.stylesheet(),
		Size:       len(p.Entries),
		Entries:    p.Entries,
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering page %s: %w", p.Name, err)
	}
	return nil
}

const baseCSS = `body { padding: 10px; margin: 10px; background: #fff; color: #05e; font-family: "Arial", Arial, Helvetica, sans-serif; }

.cbox { padding: 12px; background: #d5d5d5; width: 700px; }
.cdiv { margin-top: 0; padding-left: 7px; padding-right: 7px; }
.cdiv span { padding: 0px; margin: 3px; }
.cdiv span:hover { color: #fff; background: #05e; }

`

// CSS writes the stylesheet with one .fW class for every weight W in r.
func CSS(w io.Writer, r scale.Range) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var b strings.Builder
	b.WriteString(baseCSS)
	for size := r.Min; size <= r.Max; size++ {
		fmt.Fprintf(&b, ".f%d { font-size: %dpx; line-height: %dpx; }\n", size, size, size)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing stylesheet: %w", err)
	}
	return nil
}
