package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// ErrNotFound is returned (wrapped in *APIError) for 404 responses. On
// read endpoints it means the team or member does not exist yet.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the analysis service.
type APIError struct {
	Status int
	Detail string // structured FastAPI "detail", flattened
	Body   string // raw body when no detail could be parsed
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("server error (status %d): %s", e.Status, e.Detail)
	case e.Body != "":
		return fmt.Sprintf("server error (status %d): %s", e.Status, e.Body)
	}
	text := http.StatusText(e.Status)
	if text == "" {
		text = "unknown status"
	}
	return fmt.Sprintf("server error (status %d): %s", e.Status, text)
}

// Unwrap lets errors.Is(err, ErrNotFound) match 404s.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

const maxErrorBody = 500

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	if detail, ok := parseDetail(body); ok {
		e.Detail = detail
		return e
	}
	raw := strings.TrimSpace(string(body))
	if len(raw) > maxErrorBody {
		n := maxErrorBody
		for n > 0 && !utf8.RuneStart(raw[n]) {
			n--
		}
		raw = raw[:n] + "..."
	}
	e.Body = raw
	return e
}

// parseDetail extracts FastAPI's {"detail": ...}. detail may be a string,
// a list of validation errors ({loc, msg}), or any other JSON value.
func parseDetail(body []byte) (string, bool) {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s, s != ""
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				loc := make([]string, len(it.Loc))
				for i, l := range it.Loc {
					loc[i] = fmt.Sprint(l)
				}
				parts = append(parts, strings.Join(loc, ".")+": "+it.Msg)
			} else {
				parts = append(parts, it.Msg)
			}
		}
		return strings.Join(parts, "; "), true
	}

	compact := strings.TrimSpace(string(envelope.Detail))
	if compact == "null" {
		return "", false
	}
	return compact, true
}
