// This file parses request bodies and query parameters into domain input.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"spendlog/internal/core"
)

// maxBodyBytes bounds a transaction submission.
const maxBodyBytes = 16 << 10

var errInvalidID = errors.New("invalid transaction id")

// RequestBodyParser reads a body once and exposes its fields whether it was
// sent as JSON (API clients) or form-encoded (htmx).
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	switch {
	case trimmed == "":
		p.formData = url.Values{}
	case trimmed[0] == '{':
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
	default:
		p.formData, p.err = url.ParseQuery(trimmed)
	}
	return p.err
}

// Get returns the sanitized value of key from whichever encoding was sent.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Candidate collects the transaction fields of the body. Validation is
// left to core.NewTransaction.
func (p *RequestBodyParser) Candidate() core.Candidate {
	return core.Candidate{
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		Type:        p.Get("type"),
		Date:        p.Get("date"),
		Category:    p.Get("category"),
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseID reads the {id} path value.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// ParseShown reads the comma separated ids a client currently displays.
// Repeated shown parameters are concatenated.
func ParseShown(query url.Values) ([]int64, error) {
	var ids []int64
	for _, raw := range query["shown"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("shown: %q: %w", part, errInvalidID)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// searchQuery returns the trimmed q parameter.
func searchQuery(r *http.Request) string {
	return sanitizeInput(r.URL.Query().Get("q"))
}
