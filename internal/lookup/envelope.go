package lookup

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"pricecompare/internal/provider"
)

const (
	MsgMissingURL      = "missing url query parameter"
	MsgMissingKey      = "API_KEY not set in environment variables"
	MsgUnknownProvider = "Unknown PROVIDER configured (set PROVIDER env to 'collectapi' or 'priceapi')"
	MsgTimeout         = "timeout"
	MsgInternal        = "internal server error"
	MsgRateLimited     = "rate limit exceeded"
)

const (
	maxSnippetRunes    = 200
	defaultUpstreamMsg = "upstream request failed"
)

// Envelope is the body of every /api/price response.
type Envelope struct {
	Success bool            `json:"success"`
	Result  *provider.Quote `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Failure is an unsuccessful envelope with msg.
func Failure(msg string) Envelope { return Envelope{Success: false, Error: msg} }

// Respond maps a Lookup outcome to an HTTP status and envelope.
func Respond(res Result, err error) (int, Envelope) {
	if err == nil {
		q := res.Quote
		return res.Status, Envelope{Success: true, Result: &q}
	}
	switch {
	case errors.Is(err, provider.ErrMissingCredential):
		return http.StatusInternalServerError, Failure(MsgMissingKey)
	case errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusBadRequest, Failure(MsgUnknownProvider)
	case errors.Is(err, provider.ErrUpstreamTimeout):
		return http.StatusInternalServerError, Failure(MsgTimeout)
	}
	return http.StatusInternalServerError, Failure(upstreamMessage(err))
}

// upstreamMessage prefers the underlying error text and falls back to a
// snippet of whatever body was read.
func upstreamMessage(err error) string {
	var ue *provider.UpstreamError
	hasBody := errors.As(err, &ue) && len(ue.Body) > 0
	if hasBody && ue.Err == nil {
		return snippet(ue.Body)
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	if hasBody {
		return snippet(ue.Body)
	}
	return defaultUpstreamMsg
}

func snippet(b []byte) string {
	s := strings.TrimSpace(strings.ToValidUTF8(string(b), ""))
	if utf8.RuneCountInString(s) <= maxSnippetRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxSnippetRunes]) + "..."
}
