// Package source turns an uploaded document into decoded UTF-8 text lines
// for the cloud engine. It handles byte order marks, named charsets, Unicode
// normalization and extraction of the visible text of HTML pages.
package source

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

// Format names the markup of a document.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// Options control how a document is decoded.
type Options struct {
	Format Format
	// Charset overrides detection, e.g. "iso-8859-1" or "windows-1252".
	Charset string
	// Normalize applies Unicode NFC so composed and decomposed spellings of
	// a word count as one.
	Normalize bool
}

// ParseFormat accepts "", "text", "txt", "plain" and "html".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt", "plain":
		return FormatText, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unknown format %q", s)
	}
}

// DetectFormat guesses the format from a Content-Type header and falls back
// to the file extension of name.
func DetectFormat(contentType, name string) Format {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "text/html", "application/xhtml+xml":
			return FormatHTML
		case "text/plain":
			return FormatText
		}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	}
	return FormatText
}

// Open wraps r so that reading it yields UTF-8 text lines.
func Open(r io.Reader, opts Options) (io.Reader, error) {
	decoded, err := decode(r, opts)
	if err != nil {
		return nil, err
	}
	if opts.Format == FormatHTML {
		decoded, err = extractText(decoded)
		if err != nil {
			return nil, err
		}
	}
	if opts.Normalize {
		decoded = norm.NFC.Reader(decoded)
	}
	return decoded, nil
}

func decode(r io.Reader, opts Options) (io.Reader, error) {
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unsupported charset %q", opts.Charset)
		}
		return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
	}
	if opts.Format == FormatHTML {
		// BOM, then <meta charset>, then UTF-8 validity, then windows-1252.
		cr, err := charset.NewReader(r, "text/html")
		if err != nil {
			return nil, fmt.Errorf("%w: detecting charset: %w", apperrors.ErrInputFault, err)
		}
		return cr, nil
	}
	return transform.NewReader(r, unicode.BOMOverride(encoding.Nop.NewDecoder())), nil
}

// skipped holds elements whose text is never shown to a reader.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// blocks end the current line when they open or close.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Td: true, atom.Th: true, atom.Table: true, atom.Section: true,
	atom.Article: true, atom.Header: true, atom.Footer: true, atom.Blockquote: true,
	atom.Pre: true, atom.Hr: true, atom.Dd: true, atom.Dt: true, atom.Nav: true, atom.Aside: true,
}

func extractText(r io.Reader) (io.Reader, error) {
	var buf bytes.Buffer
	z := html.NewTokenizer(r)
	depth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("%w: parsing html: %w", apperrors.ErrInputFault, err)
			}
			return &buf, nil
		case html.TextToken:
			if depth == 0 {
				buf.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skipped[a] && tt != html.SelfClosingTagToken {
				if tt == html.StartTagToken {
					depth++
				} else if depth > 0 {
					depth--
				}
				continue
			}
			if blocks[a] && depth == 0 {
				buf.WriteByte('\n')
			}
		}
	}
}
