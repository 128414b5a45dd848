package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"google.golang.org/genai"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrTransport     = errors.New("transport error")
)

const maxErrorMessage = 200

// DegradedError reports that no client could be built for a provider. The
// reason is meant for end users.
type DegradedError struct {
	Provider string
	Reason   string
}

func (e *DegradedError) Error() string {
	return e.Reason
}

// InvocationError is a failed model call. Kind is one of ErrUnauthorized,
// ErrQuotaExceeded or ErrTransport.
type InvocationError struct {
	Provider   Provider
	Kind       error
	StatusCode int
	Err        error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *InvocationError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Reason maps any gateway failure to the text shown in place of a summary or
// remark.
func Reason(err error) string {
	var degraded *DegradedError
	if errors.As(err, &degraded) {
		return degraded.Reason
	}

	var inv *InvocationError
	if !errors.As(err, &inv) {
		return fmt.Sprintf("LLM Error: %s", truncate(err.Error(), maxErrorMessage))
	}

	switch {
	case errors.Is(inv.Kind, ErrUnauthorized):
		code := inv.StatusCode
		if code == 0 {
			code = 403
		}
		return fmt.Sprintf("Access Denied (%d) from %s. Check firewall/network settings.", code, inv.Provider)
	case errors.Is(inv.Kind, ErrQuotaExceeded):
		return "Insufficient credits. Please check your provider's billing."
	default:
		return fmt.Sprintf("LLM Error (%s): %s", inv.Provider, truncate(inv.Err.Error(), maxErrorMessage))
	}
}

// classify wraps a provider SDK error. Status codes are used when the SDK
// exposes them; otherwise the message is searched for "403" and "credits".
func classify(provider Provider, err error) *InvocationError {
	inv := &InvocationError{Provider: provider, Kind: ErrTransport, Err: err}

	var oaErr *openai.Error
	var gErr genai.APIError
	switch {
	case errors.As(err, &oaErr):
		inv.StatusCode = oaErr.StatusCode
		inv.Kind = kindForStatus(oaErr.StatusCode, oaErr.Code+" "+oaErr.Type+" "+oaErr.Message)
	case errors.As(err, &gErr):
		inv.StatusCode = gErr.Code
		inv.Kind = kindForStatus(gErr.Code, gErr.Status+" "+gErr.Message)
	}

	if inv.Kind == ErrTransport {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "403"):
			inv.Kind = ErrUnauthorized
			inv.StatusCode = 403
		case strings.Contains(strings.ToLower(msg), "credits"):
			inv.Kind = ErrQuotaExceeded
		}
	}
	return inv
}

func kindForStatus(code int, detail string) error {
	detail = strings.ToLower(detail)
	switch {
	case code == 401 || code == 403:
		return ErrUnauthorized
	case code == 402:
		return ErrQuotaExceeded
	case strings.Contains(detail, "insufficient_quota"),
		strings.Contains(detail, "resource_exhausted"),
		strings.Contains(detail, "credits"):
		return ErrQuotaExceeded
	}
	return ErrTransport
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
