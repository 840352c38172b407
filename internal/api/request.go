package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/cloud/scale"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/internal/source"
	"github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tagcloud/pkg/errors"
)

const maxSourceLength = 255

// CloudRequest is the JSON body of POST /api/v1/clouds and POST /api/v1/jobs.
// Zero numeric fields take the configured defaults.
type CloudRequest struct {
	Source    string `json:"source"`
	Text      string `json:"text"`
	Format    string `json:"format"`
	Charset   string `json:"charset"`
	Normalize bool   `json:"normalize"`
	Words     int    `json:"words"`
	MinWeight int    `json:"min_weight"`
	MaxWeight int    `json:"max_weight"`
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// decodeRequest reads a JSON CloudRequest, or a raw text/plain or text/html
// document whose options are taken from the query string.
func decodeRequest(w http.ResponseWriter, r *http.Request, limits config.CloudConfig) (CloudRequest, []byte, error) {
	var req CloudRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		// Leave room for JSON escaping around a document at the size limit.
		r.Body = http.MaxBytesReader(w, r.Body, 2*limits.MaxDocumentBytes+4096)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if tooLarge(err) {
				return req, nil, documentTooLarge(limits.MaxDocumentBytes)
			}
			return req, nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid JSON body")
		}
		return req, []byte(req.Text), nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxDocumentBytes)
	doc, err := io.ReadAll(r.Body)
	if err != nil {
		if tooLarge(err) {
			return req, nil, documentTooLarge(limits.MaxDocumentBytes)
		}
		return req, nil, fmt.Errorf("%w: reading body: %w", apperrors.ErrInputFault, err)
	}
	q := r.URL.Query()
	req.Source = q.Get("source")
	req.Format = q.Get("format")
	if req.Format == "" {
		req.Format = string(source.DetectFormat(r.Header.Get("Content-Type"), req.Source))
	}
	req.Charset = q.Get("charset")
	if req.Charset == "" {
		if _, params, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
			req.Charset = params["charset"]
		}
	}
	fields := make(map[string]string)
	req.Normalize = queryBool(q, "normalize", fields)
	req.Words = queryInt(q, "words", fields)
	req.MinWeight = queryInt(q, "min_weight", fields)
	req.MaxWeight = queryInt(q, "max_weight", fields)
	if len(fields) > 0 {
		return req, nil, &ValidationError{Fields: fields}
	}
	return req, doc, nil
}

// validate applies defaults and limits and builds the generation request.
func validate(req CloudRequest, doc []byte, limits config.CloudConfig) (jobs.Request, error) {
	errs := make(map[string]string)

	name := strings.TrimSpace(req.Source)
	if name == "" {
		name = "document"
	} else if len(name) > maxSourceLength {
		errs["source"] = fmt.Sprintf("source must be at most %d characters", maxSourceLength)
	}
	if len(doc) == 0 {
		errs["text"] = "text is required and must not be empty"
	}

	format, err := source.ParseFormat(req.Format)
	if err != nil {
		errs["format"] = "format must be text or html"
	}

	words := req.Words
	if words == 0 {
		words = limits.DefaultWords
	}
	if words < 0 {
		errs["words"] = "words must be positive"
	} else if words > limits.MaxWords {
		errs["words"] = fmt.Sprintf("words must be at most %d", limits.MaxWords)
	}

	weights := scale.Range{Min: limits.MinWeight, Max: limits.MaxWeight}
	if req.MinWeight != 0 {
		weights.Min = req.MinWeight
	}
	if req.MaxWeight != 0 {
		weights.Max = req.MaxWeight
	}
	switch {
	case weights.Min < 0 || weights.Min >= scale.MaxWeight:
		errs["min_weight"] = fmt.Sprintf("min_weight must be between 0 and %d", scale.MaxWeight-1)
	case weights.Max > scale.MaxWeight:
		errs["max_weight"] = fmt.Sprintf("max_weight must be at most %d", scale.MaxWeight)
	case weights.Min >= weights.Max:
		errs["max_weight"] = fmt.Sprintf("max_weight (%d) must be greater than min_weight (%d)", weights.Max, weights.Min)
	}

	if len(errs) > 0 {
		return jobs.Request{}, &ValidationError{Fields: errs}
	}
	if int64(len(doc)) > limits.MaxDocumentBytes {
		return jobs.Request{}, documentTooLarge(limits.MaxDocumentBytes)
	}
	return jobs.Request{
		Source:   name,
		Document: doc,
		Input: source.Options{
			Format:    format,
			Charset:   req.Charset,
			Normalize: req.Normalize,
		},
		Options: cloud.Options{Words: words, Weights: weights},
	}, nil
}

func queryInt(q url.Values, name string, errs map[string]string) int {
	v := q.Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		errs[name] = name + " must be an integer"
	}
	return n
}

func queryBool(q url.Values, name string, errs map[string]string) bool {
	v := q.Get(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		errs[name] = name + " must be true or false"
	}
	return b
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func documentTooLarge(limit int64) error {
	return apperrors.Newf(apperrors.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge,
		"document exceeds %d bytes", limit)
}
