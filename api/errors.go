package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// statusClientClosedRequest is the non-standard status used for cancelled requests.
const statusClientClosedRequest = 499

// StatusFor maps an error kind to the HTTP status reported for it.
func StatusFor(kind uperrors.Kind) int {
	switch kind {
	case uperrors.KindValidation, uperrors.KindTooManyParts:
		return http.StatusBadRequest
	case uperrors.KindBackend, uperrors.KindTransfer:
		return http.StatusBadGateway
	case uperrors.KindCancelled:
		return statusClientClosedRequest
	case uperrors.KindAmbiguousCompletion:
		return http.StatusGatewayTimeout
	case uperrors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err with the status and body derived from its kind.
func (s *Server) writeError(c *gin.Context, err error) {
	kind := uperrors.KindOf(err)
	status := StatusFor(kind)

	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"kind", kind,
			"error", err,
		)
	}

	c.AbortWithStatusJSON(status, uploadtypes.ErrorResponse{
		Error:   kind.String(),
		Message: message(err),
	})
}

// message returns the human-readable part of err without the operation prefix.
func message(err error) string {
	var e *uperrors.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}

// bindError converts a request decoding failure into a validation error.
func bindError(op string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return uperrors.NewError(op, uperrors.ErrInvalidInput).WithMessage("request body too large")
	}
	return uperrors.NewError(op, uperrors.ErrInvalidInput).WithMessage("invalid request body: " + err.Error())
}
