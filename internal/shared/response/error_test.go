package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/modeyang/M-TraeSoloProduct/internal/shared/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errThing = errors.New("thing missing")

func TestHandleError(t *testing.T) {
	mappings := []ErrorMapping{
		{Err: errThing, To: func(error) *apperrors.AppError { return apperrors.NotFound("thing") }},
	}

	decode := func(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
		var body apperrors.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	t.Run("mapped error", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		handled := HandleError(c, errors.Join(errors.New("lookup"), errThing), mappings)

		assert.True(t, handled)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "NOT_FOUND", decode(t, w).Error.Code)
	})

	t.Run("wrapped app error", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		handled := HandleError(c, apperrors.Conflict("BUSY", "busy"), mappings)

		assert.True(t, handled)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "BUSY", decode(t, w).Error.Code)
	})

	t.Run("unmapped error falls back to internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		HandleErrorWithDefault(c, errors.New("boom"), mappings)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "boom")
	})
}
