package graphsdk

// TokenResponse is returned by the oauth/access_token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds. The platform omits it for some
	// token types, so callers should rely on DebugToken for expiry.
	ExpiresIn int64 `json:"expires_in,omitempty"`
}

// DebugTokenData is the payload of the debug_token endpoint.
// Timestamps are unix seconds; an ExpiresAt of 0 means the platform reports
// no expiry.
type DebugTokenData struct {
	AppID               string   `json:"app_id"`
	Type                string   `json:"type"`
	Application         string   `json:"application"`
	DataAccessExpiresAt int64    `json:"data_access_expires_at"`
	ExpiresAt           int64    `json:"expires_at"`
	IsValid             bool     `json:"is_valid"`
	IssuedAt            int64    `json:"issued_at,omitempty"`
	Scopes              []string `json:"scopes"`
	UserID              string   `json:"user_id"`

	// Error is set when the platform reports why a token is invalid.
	Error *DebugTokenError `json:"error,omitempty"`
}

// DebugTokenError explains why a debugged token is not valid.
type DebugTokenError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Subcode int    `json:"subcode"`
}

type debugTokenResponse struct {
	Data DebugTokenData `json:"data"`
}

// errorEnvelope is the Graph API error body: {"error": {...}}.
type errorEnvelope struct {
	Error *struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}
