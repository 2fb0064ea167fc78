package response

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "github.com/modeyang/M-TraeSoloProduct/internal/shared/errors"
)

// ErrorMapping maps a domain error to an application error.
type ErrorMapping struct {
	Err error
	To  func(err error) *apperrors.AppError
}

// Error writes an application error as the JSON error body.
func Error(c *gin.Context, appErr *apperrors.AppError) {
	c.JSON(appErr.StatusCode, appErr.ToResponse())
}

// HandleError writes err using the first mapping that matches it.
// Returns true if the error was handled, false otherwise.
func HandleError(c *gin.Context, err error, mappings []ErrorMapping) bool {
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			Error(c, m.To(err))
			return true
		}
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		Error(c, appErr)
		return true
	}
	return false
}

// HandleErrorWithDefault handles an error with an internal error fallback.
func HandleErrorWithDefault(c *gin.Context, err error, mappings []ErrorMapping) {
	if !HandleError(c, err, mappings) {
		Error(c, apperrors.Internal("internal server error", err))
	}
}
