package httpx

// Error codes carried in ErrorResponseBody.Code.
const (
	CodeBadRequest           = "BAD_REQUEST"
	CodeValidation           = "VALIDATION_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeNotFound             = "NOT_FOUND"
	CodeTitleTaken           = "TITLE_TAKEN"
	CodeInvalidDocument      = "INVALID_DOCUMENT"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeRateLimited          = "RATE_LIMIT_EXCEEDED"
	CodeInternal             = "INTERNAL_ERROR"
	CodeRemoteDisabled       = "REMOTE_DISABLED"
	CodeStreamingUnsupported = "STREAMING_UNSUPPORTED"
)
