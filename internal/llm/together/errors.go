package together

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/HerbHall/narracode/pkg/llm"
)

// mapError translates go-openai and network errors into typed llm.ProviderError values.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return llm.NewProviderError(llm.ErrCodeTimeout, "request timed out or cancelled", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fromStatus(apiErr.HTTPStatusCode, apiErr.Type, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.HTTPStatus
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return fromStatus(reqErr.HTTPStatusCode, "", msg, err)
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") {
		return llm.NewProviderError(llm.ErrCodeServerError, "together server unreachable", err)
	}

	return llm.NewProviderError(llm.ErrCodeServerError, "together error", err)
}

func fromStatus(status int, errType, msg string, err error) error {
	lower := strings.ToLower(msg)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return llm.NewProviderError(llm.ErrCodeAuthentication, msg, err)
	case status == http.StatusTooManyRequests:
		return llm.NewProviderError(llm.ErrCodeRateLimit, msg, err)
	case status == http.StatusNotFound && strings.Contains(lower, "model"):
		return llm.NewProviderError(llm.ErrCodeModelNotFound, msg, err)
	case errType == "context_length_exceeded" || strings.Contains(lower, "context length"):
		return llm.NewProviderError(llm.ErrCodeContextLength, msg, err)
	case status >= 500:
		return llm.NewProviderError(llm.ErrCodeServerError, msg, err)
	case status >= 400:
		return llm.NewProviderError(llm.ErrCodeInvalidRequest, msg, err)
	}
	return llm.NewProviderError(llm.ErrCodeServerError, msg, err)
}

// isMalformed reports whether a stream error concerns the payload of a
// single chunk rather than the connection.
func isMalformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
