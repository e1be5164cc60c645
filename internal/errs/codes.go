package errs

const (
	ErrBadRequest          = "code-reviewer.bad_request"
	ErrNotFound            = "code-reviewer.not_found"
	ErrInvalidArchive      = "code-reviewer.invalid_archive"
	ErrUnknownAnalysisKind = "code-reviewer.unknown_analysis_kind"
	ErrProviderFailed      = "code-reviewer.provider_failed"
	ErrMisconfigured       = "code-reviewer.misconfigured"
	ErrStorageFailed       = "code-reviewer.storage_failed"
	ErrInternalServerError = "code-reviewer.internal_server_error"
	ErrUnauthorized        = "code-reviewer.unauthorized"
	ErrTooManyRequests     = "code-reviewer.too_many_requests"
	ErrRouteNotFound       = "code-reviewer.route_not_found"
	ErrMethodNotAllowed    = "code-reviewer.method_not_allowed"
	ErrRequestCanceled     = "code-reviewer.request_canceled"
)
