package graphsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes the credential lifecycle cares about.
const (
	// CodeOAuthException covers invalid, expired and revoked tokens.
	CodeOAuthException = 190
	// CodeInvalidParameter is returned for bad client_id/client_secret pairs.
	CodeInvalidParameter = 100
	// CodeRateLimited is the application-level throttling code.
	CodeRateLimited = 4
)

// APIError is an error payload returned by the Graph API.
type APIError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int

	Message string
	Type    string // e.g. "OAuthException"
	Code    int
	Subcode int
	TraceID string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("graph api %d: %s (type=%s code=%d subcode=%d)",
			e.StatusCode, e.Message, e.Type, e.Code, e.Subcode)
	}
	return fmt.Sprintf("graph api %d: %s", e.StatusCode, e.Message)
}

// IsTokenInvalid reports whether the platform rejected the token itself
// (expired, revoked or malformed), as opposed to a transient failure.
func (e *APIError) IsTokenInvalid() bool {
	return e.Code == CodeOAuthException
}

// IsRateLimited reports whether the request was throttled.
func (e *APIError) IsRateLimited() bool {
	return e.Code == CodeRateLimited || e.StatusCode == http.StatusTooManyRequests
}

// parseErrorResponse turns a non-200 response into an *APIError, falling back
// to the HTTP status text when the body is not a Graph error envelope.
func parseErrorResponse(statusCode int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		return &APIError{
			StatusCode: statusCode,
			Message:    env.Error.Message,
			Type:       env.Error.Type,
			Code:       env.Error.Code,
			Subcode:    env.Error.ErrorSubcode,
			TraceID:    env.Error.FBTraceID,
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
	}
}
