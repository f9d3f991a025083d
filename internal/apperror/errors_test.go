package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Rendering(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, KindNetwork, "fetch translation").
		WithContext("url", "https://example.test/global.ini").
		WithContext("attempt", 1)

	assert.Equal(t,
		"fetch translation (attempt=1, url=https://example.test/global.ini): connection refused",
		err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := New(KindNotFound, "cache entry missing")
	wrapped := fmt.Errorf("install from cache: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindIO))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindInvalid, http.StatusBadRequest},
		{KindUnsupported, http.StatusBadRequest},
		{KindNetwork, http.StatusBadGateway},
		{KindIO, http.StatusInternalServerError},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}
