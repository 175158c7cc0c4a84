package middleware

// HTTP header constants.
const (
	// HeaderAuthorization is the authorization header name.
	HeaderAuthorization = "Authorization"

	// HeaderContentType is the content type header name.
	HeaderContentType = "Content-Type"

	// HeaderRetryAfter is the retry after header name.
	HeaderRetryAfter = "Retry-After"

	// HeaderXForwardedFor is the X-Forwarded-For header name.
	HeaderXForwardedFor = "X-Forwarded-For"

	// HeaderRequestID is the request ID header name.
	HeaderRequestID = "X-Request-ID"

	// HeaderProcessTime carries the handler wall-clock time in seconds
	// as a decimal string.
	HeaderProcessTime = "X-Process-Time"
)

// Content type constants.
const (
	// ContentTypeText is the plain text content type.
	ContentTypeText = "text/plain; charset=utf-8"
)

// Response body constants.
const (
	// MsgRateLimitExceeded is the plain-text body returned to throttled
	// clients.
	MsgRateLimitExceeded = "Rate limit exceeded"

	// MsgCouldNotValidate is the uniform error returned for every
	// authentication failure on protected routes. One message for all
	// failure modes so the reason never leaks to the caller.
	MsgCouldNotValidate = "Could not validate user."
)

// Context keys used to pass values between middleware and handlers.
const (
	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "requestID"

	// ContextKeyIdentity is the gin context key for the authenticated
	// identity.
	ContextKeyIdentity = "identity"
)
