package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("checkout: %w", apperr.Wrap(apperr.NotFound, base, "product %s not found", "p-1"))

	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "product p-1 not found")

	assert.Equal(t, apperr.Internal, apperr.KindOf(base))
	assert.False(t, apperr.Is(nil, apperr.Internal))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.InvalidInput:      http.StatusBadRequest,
		apperr.Unauthenticated:   http.StatusUnauthorized,
		apperr.Forbidden:         http.StatusForbidden,
		apperr.NotFound:          http.StatusNotFound,
		apperr.InsufficientStock: http.StatusConflict,
		apperr.Conflict:          http.StatusConflict,
		apperr.Internal:          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperr.HTTPStatus(kind), kind.String())
	}
}

func TestInvalid(t *testing.T) {
	err := fmt.Errorf("register: %w", apperr.Invalid(map[string]string{"Email": "Field 'Email' failed on the 'email' tag"}))
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
	assert.Contains(t, apperr.FieldsOf(err), "Email")
	assert.Nil(t, apperr.FieldsOf(fmt.Errorf("plain")))
}
