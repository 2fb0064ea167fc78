package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("error message includes wrapped error", func(t *testing.T) {
		err := Internal("save failed", errors.New("disk full"))
		assert.Equal(t, "save failed: disk full", err.Error())
		assert.Equal(t, "save failed: bad request", BadRequest("save failed").Error())
		assert.Equal(t, "save failed", BadRequest("save failed").Message)
	})

	t.Run("upstream keeps both causes", func(t *testing.T) {
		cause := errors.New("503 from backend")
		err := Upstream("BACKEND_FAILURE", "backend failed", cause)
		assert.ErrorIs(t, err, ErrUpstream)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("with details copies", func(t *testing.T) {
		base := Validation("INVALID_OPTION", "bad option")
		detailed := base.WithDetails(map[string]any{"option": "style"})
		assert.Nil(t, base.Details)
		assert.Equal(t, "style", detailed.ToResponse().Error.Details["option"])
		assert.Equal(t, "INVALID_OPTION", detailed.ToResponse().Error.Code)
	})
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", Validation("EMPTY_PROMPT", "prompt"), http.StatusUnprocessableEntity},
		{"wrapped app error", fmt.Errorf("handler: %w", NotFound("session")), http.StatusNotFound},
		{"conflict", Conflict("BUSY", "busy"), http.StatusConflict},
		{"timeout", Timeout("TIMEOUT", "slow"), http.StatusGatewayTimeout},
		{"sentinel", fmt.Errorf("x: %w", ErrServiceUnavail), http.StatusServiceUnavailable},
		{"too large", TooLarge("big"), http.StatusRequestEntityTooLarge},
		{"client closed", ClientClosed(), StatusClientClosedRequest},
		{"client closed sentinel", fmt.Errorf("x: %w", ErrClientClosed), StatusClientClosedRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetStatusCode(tt.err))
		})
	}
}
