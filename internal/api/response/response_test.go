package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/api/response"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/me/devices", nil)

	response.JSON(w, r, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "world", body["hello"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/ops/health", nil)

	response.JSON(w, r, http.StatusOK, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestCreated(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/me/devices", nil)

	response.Created(w, r, "/v1/me/devices/dev_123", map[string]string{"id": "dev_123"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/v1/me/devices/dev_123", w.Header().Get("Location"))
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/v1/me/devices/dev_123", nil)

	response.NoContent(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter, r *http.Request)
		wantStatus int
		wantType   string
	}{
		{
			name: "bad request",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.BadRequest(w, r, "invalid input", nil)
			},
			wantStatus: http.StatusBadRequest,
			wantType:   models.ProblemTypeValidation,
		},
		{
			name: "unauthorized",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.Unauthorized(w, r, "missing token")
			},
			wantStatus: http.StatusUnauthorized,
			wantType:   models.ProblemTypeUnauthorized,
		},
		{
			name: "forbidden",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.Forbidden(w, r, "managers only")
			},
			wantStatus: http.StatusForbidden,
			wantType:   models.ProblemTypeForbidden,
		},
		{
			name: "not found",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.NotFound(w, r, "no such task")
			},
			wantStatus: http.StatusNotFound,
			wantType:   models.ProblemTypeNotFound,
		},
		{
			name: "conflict",
			write: func(w http.ResponseWriter, r *http.Request) {
				response.Conflict(w, r, "code already used")
			},
			wantStatus: http.StatusConflict,
			wantType:   models.ProblemTypeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/test", nil)

			tt.write(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

			var problem models.Problem
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/v1/test", problem.Instance)
		})
	}
}
