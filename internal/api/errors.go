package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fincli/internal/gateway"
)

// FieldError is one entry of a validation error body.
type FieldError struct {
	Field    string
	Messages []string
}

// ErrorBody is a decoded backend error. The backend answers either
// {"detail": "..."} or {"field": ["message", ...], ...}; Fields keeps the
// order the backend sent them in.
type ErrorBody struct {
	Detail string
	Fields []FieldError
}

// DecodeError extracts the error body from a failed call. It reports false
// when err carries no backend response or the body is not a JSON object.
func DecodeError(err error) (*ErrorBody, bool) {
	var he *gateway.HTTPError
	if !errors.As(err, &he) {
		return nil, false
	}
	body, perr := parseErrorBody(he.Body)
	if perr != nil {
		return nil, false
	}
	return body, true
}

// Message returns the message to show for a failed call: the detail when
// present, else the first message of the first field, else fallback.
func Message(err error, fallback string) string {
	if errors.Is(err, gateway.ErrSessionExpired) {
		return "session expired, please log in again"
	}
	body, ok := DecodeError(err)
	if !ok {
		return fallback
	}
	if body.Detail != "" {
		return body.Detail
	}
	for _, f := range body.Fields {
		if len(f.Messages) > 0 && f.Messages[0] != "" {
			return f.Messages[0]
		}
	}
	return fallback
}

// Detail returns only the detail message, or fallback.
func Detail(err error, fallback string) string {
	if body, ok := DecodeError(err); ok && body.Detail != "" {
		return body.Detail
	}
	return fallback
}

func parseErrorBody(data []byte) (*ErrorBody, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("error body is not an object")
	}

	body := &ErrorBody{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		msgs := messages(raw)

		if key == "detail" && len(msgs) > 0 && body.Detail == "" {
			body.Detail = msgs[0]
			continue
		}
		body.Fields = append(body.Fields, FieldError{Field: key, Messages: msgs})
	}
	return body, nil
}

// messages flattens a field value into display strings.
func messages(raw json.RawMessage) []string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if err := json.Unmarshal(item, &s); err == nil {
				out = append(out, s)
			} else {
				out = append(out, strings.TrimSpace(string(item)))
			}
		}
		return out
	}
	return []string{strings.TrimSpace(string(raw))}
}
