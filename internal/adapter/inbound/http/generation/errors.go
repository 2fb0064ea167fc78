package generationhttp

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/modeyang/M-TraeSoloProduct/internal/domain/generation"
	"github.com/modeyang/M-TraeSoloProduct/internal/infra/session"
	apperrors "github.com/modeyang/M-TraeSoloProduct/internal/shared/errors"
	"github.com/modeyang/M-TraeSoloProduct/internal/shared/response"
)

var errorMappings = []response.ErrorMapping{
	{Err: session.ErrSessionNotFound, To: func(error) *apperrors.AppError { return apperrors.NotFound("session") }},
	{Err: session.ErrTooManySessions, To: func(error) *apperrors.AppError {
		return apperrors.ServiceUnavailable("too many open sessions")
	}},

	{Err: generation.ErrEmptyPrompt, To: taxonomy(apperrors.Validation)},
	{Err: generation.ErrMissingImage, To: taxonomy(apperrors.Validation)},
	{Err: generation.ErrInvalidOption, To: taxonomy(apperrors.Validation)},
	{Err: generation.ErrNotAnImage, To: taxonomy(apperrors.Validation)},
	{Err: generation.ErrUnsupportedKind, To: taxonomy(apperrors.Validation)},
	{Err: generation.ErrBusy, To: taxonomy(apperrors.Conflict)},
	{Err: generation.ErrTimeout, To: taxonomy(apperrors.Timeout)},
	{Err: generation.ErrBackendFailure, To: func(err error) *apperrors.AppError {
		code, msg := describe(err)
		return apperrors.Upstream(code, msg, err)
	}},

	{Err: generation.ErrNothingToCancel, To: conflict("NOTHING_TO_CANCEL")},
	{Err: generation.ErrSessionClosed, To: conflict("SESSION_CLOSED")},
	{Err: generation.ErrSuperseded, To: conflict("SUPERSEDED")},
}

// handleError maps domain errors to HTTP responses.
func (h *Handler) handleError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.Error(c, apperrors.TooLarge("request body is too large").
			WithDetails(map[string]any{"max_bytes": h.maxUploadBytes}))
		return
	}
	if errors.Is(err, context.Canceled) {
		h.logger.Debug("client closed request",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.Error(c, apperrors.ClientClosed())
		return
	}

	if !response.HandleError(c, err, errorMappings) {
		h.logger.Error("unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.Error(c, apperrors.Internal("internal server error", err))
	}
}

// taxonomy builds an AppError carrying the generation error kind as its code.
func taxonomy(build func(code, message string) *apperrors.AppError) func(error) *apperrors.AppError {
	return func(err error) *apperrors.AppError {
		return build(describe(err))
	}
}

func conflict(code string) func(error) *apperrors.AppError {
	return func(err error) *apperrors.AppError {
		return apperrors.Conflict(code, err.Error())
	}
}

func describe(err error) (string, string) {
	var genErr *generation.Error
	if errors.As(err, &genErr) {
		return string(genErr.Kind), genErr.Message
	}
	return "ERROR", err.Error()
}
