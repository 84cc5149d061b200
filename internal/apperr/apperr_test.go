package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Invalid("bad %s", "input")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbid("nope")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(Missing("gone")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := Missing("message not found")
	wrapped := fmt.Errorf("load: %w", base)

	assert.True(t, Is(wrapped, NotFound))
	assert.Equal(t, "message not found", Message(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(Internal, cause, "store write failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store write failed: socket closed", err.Error())
	assert.Nil(t, Wrap(Internal, nil, "unused"))
}
