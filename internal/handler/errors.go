package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"code-reviewer/internal/errs"
	"code-reviewer/pkg/response"
)

// StatusClientClosedRequest is reported when the caller went away before the
// result was ready.
const StatusClientClosedRequest = 499

// statusFor maps a service error to an HTTP status and business code.
// Configuration is checked before provider so a missing key is never
// reported as an upstream failure.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrUnknownKind):
		return http.StatusBadRequest, errs.ErrUnknownAnalysisKind
	case errs.IsNotFound(err):
		return http.StatusNotFound, errs.ErrNotFound
	case errs.IsArchive(err):
		return http.StatusBadRequest, errs.ErrInvalidArchive
	case errs.IsConfiguration(err):
		return http.StatusServiceUnavailable, errs.ErrMisconfigured
	case errs.IsProvider(err):
		return http.StatusBadGateway, errs.ErrProviderFailed
	case errs.IsStorage(err):
		return http.StatusInternalServerError, errs.ErrStorageFailed
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, errs.ErrRequestCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errs.ErrInternalServerError
	default:
		return http.StatusInternalServerError, errs.ErrInternalServerError
	}
}

// fail writes err in the standard envelope. Client errors are logged as
// warnings, everything else as errors.
func (h *APIHandler) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	} else {
		h.logger.Warn("%s %s rejected: %v", c.Request.Method, c.FullPath(), err)
	}
	response.ErrorWithCode(c, status, code, err)
}

func (h *APIHandler) badRequest(c *gin.Context, err error) {
	h.logger.Warn("invalid request format: %v", err)
	response.ErrorWithCode(c, http.StatusBadRequest, errs.ErrBadRequest, err)
}
