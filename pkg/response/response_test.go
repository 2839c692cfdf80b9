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

	"github.com/milan604/hr-console/pkg/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var body APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleErrorUsesAppErrorStatus(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, apperr.New(apperr.ErrorCodePermissionDenied))

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.False(t, body.Success)
	assert.Equal(t, "permission_denied", body.Code)
}

func TestHandleErrorMasksUnknownErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, errors.New("redis: connection pool timeout"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, "internal_error", body.Code)
	assert.NotContains(t, w.Body.String(), "redis")
}

func TestPageCarriesMeta(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Page(c, []string{"a", "b"}, 12, 2, 4)

	body := decode(t, w)
	assert.True(t, body.Success)
	assert.EqualValues(t, 12, body.Meta["total"])
	assert.EqualValues(t, 2, body.Meta["limit"])
}
