package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("Path is required")))
	assert.Equal(t, KindUnauthorized, KindOf(Unauthorized()))
	assert.Equal(t, KindNotFound, KindOf(NotFound("Post not found")))
	assert.Equal(t, KindConflict, KindOf(Conflict("Email already exists")))
	assert.Equal(t, KindInternal, KindOf(errors.New("conn reset")))

	wrapped := fmt.Errorf("update user: %w", Conflict("Email already exists"))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(nil, KindInternal))
}

func TestPublicMessage_HidesInternalCause(t *testing.T) {
	err := Internal(errors.New("pq: password authentication failed for user postgres"))
	assert.Equal(t, "Internal server error", PublicMessage(err))
	assert.Contains(t, err.Error(), "password authentication failed")
	assert.Equal(t, "Slug already exists", PublicMessage(Conflict("Slug already exists")))
}

func TestWriteHTTP(t *testing.T) {
	cases := []struct {
		err          error
		expectedCode int
		expectedBody string
	}{
		{Validation("Name is required"), http.StatusBadRequest, `{"success":false,"error":"Name is required"}`},
		{Unauthorized(), http.StatusUnauthorized, `{"success":false,"error":"Unauthorized"}`},
		{NotFound("Post not found"), http.StatusNotFound, `{"success":false,"error":"Post not found"}`},
		{Conflict("Email already subscribed"), http.StatusConflict, `{"success":false,"error":"Email already subscribed"}`},
		{errors.New("boom"), http.StatusInternalServerError, `{"success":false,"error":"Internal server error"}`},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		WriteHTTP(rr, tc.err)
		assert.Equal(t, tc.expectedCode, rr.Code)
		assert.JSONEq(t, tc.expectedBody, rr.Body.String())
	}
}
