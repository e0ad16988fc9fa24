package khipu

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/khipudemo/khipu-payments/internal/domain"
)

// Interpret turns a raw provider response into out or a classified *domain.PaymentError.
// Every status code maps to exactly one outcome.
func Interpret(status int, body []byte, out any) error {
	text := strings.TrimSpace(string(body))

	var doc any
	if text != "" {
		if err := json.Unmarshal(body, &doc); err != nil {
			return &domain.PaymentError{
				Kind:    domain.KindMalformedResponse,
				Message: fmt.Sprintf("provider returned a non-JSON body (HTTP %d)", status),
				Status:  status,
				Body:    string(body),
				Cause:   err,
			}
		}
	}

	if obj, ok := doc.(map[string]any); ok {
		if perr := unwrapEnvelope(status, obj); perr != nil {
			return perr
		}
	}

	if status >= 200 && status < 300 {
		if out == nil {
			return nil
		}
		if text == "" {
			return &domain.PaymentError{
				Kind:    domain.KindMalformedResponse,
				Message: fmt.Sprintf("provider returned an empty body (HTTP %d)", status),
				Status:  status,
				Body:    string(body),
			}
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &domain.PaymentError{
				Kind:    domain.KindMalformedResponse,
				Message: "provider response does not match the expected shape",
				Status:  status,
				Body:    string(body),
				Cause:   err,
			}
		}
		return nil
	}

	return &domain.PaymentError{
		Kind:    kindForStatus(status),
		Message: messageOf(doc, status),
		Status:  status,
		Body:    string(body),
		Details: detailsOf(doc),
	}
}

// kindForStatus classifies a non-2xx status.
func kindForStatus(status int) domain.ErrorKind {
	switch {
	case status == http.StatusBadRequest:
		return domain.KindValidation
	case status == http.StatusUnauthorized:
		return domain.KindAuthentication
	case status == http.StatusForbidden:
		return domain.KindAuthorization
	case status == http.StatusNotFound:
		return domain.KindNotFound
	case status >= 500:
		return domain.KindProviderServer
	default:
		return domain.KindUnknownHTTP
	}
}

// providerError is the inner error document of the provider.
type providerError struct {
	Message string              `json:"message"`
	Status  int                 `json:"status"`
	Errors  []domain.FieldError `json:"errors"`
}

// unwrapEnvelope detects {"error_<op>": {"http_body": "<json>"}} and surfaces
// the inner document. It returns nil when no envelope is present.
func unwrapEnvelope(status int, obj map[string]any) *domain.PaymentError {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		if strings.HasPrefix(k, "error_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		env, ok := obj[k].(map[string]any)
		if !ok {
			continue
		}
		raw, ok := env["http_body"].(string)
		if !ok {
			continue
		}

		var inner providerError
		if err := json.Unmarshal([]byte(raw), &inner); err != nil {
			return &domain.PaymentError{
				Kind:    domain.KindMalformedResponse,
				Message: "provider error envelope " + k + " is not valid JSON",
				Status:  status,
				Body:    raw,
				Cause:   err,
			}
		}

		code := status
		if c, ok := env["http_code"].(float64); ok {
			code = int(c)
		} else if inner.Status != 0 {
			code = inner.Status
		}
		kind := domain.KindValidation
		if code >= 300 || code < 200 {
			kind = kindForStatus(code)
		}

		msg := inner.Message
		if msg == "" {
			msg = "provider rejected the request"
		}
		return &domain.PaymentError{
			Kind:    kind,
			Message: msg,
			Status:  code,
			Body:    raw,
			Details: inner.Errors,
		}
	}
	return nil
}

func messageOf(doc any, status int) string {
	if obj, ok := doc.(map[string]any); ok {
		if m, ok := obj["message"].(string); ok && m != "" {
			return m
		}
		switch e := obj["error"].(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("HTTP %d: %s", status, text)
	}
	return fmt.Sprintf("HTTP %d", status)
}

func detailsOf(doc any) []domain.FieldError {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	items, ok := obj["errors"].([]any)
	if !ok {
		return nil
	}
	var out []domain.FieldError
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		field, _ := m["field"].(string)
		msg, _ := m["message"].(string)
		out = append(out, domain.FieldError{Field: field, Message: msg})
	}
	return out
}
