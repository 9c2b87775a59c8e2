package errdef_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/openflighthpc/cluster-builder/internal/errdef"

	"github.com/stretchr/testify/assert"
)

func TestIsForbidden(t *testing.T) {
	assert.False(t, errdef.IsForbidden(errors.New("some error")))
	assert.True(t, errdef.IsForbidden(errdef.NewForbidden("some error")))
}

func TestIsBadRequest(t *testing.T) {
	assert.False(t, errdef.IsBadRequest(errors.New("some error")))
	assert.True(t, errdef.IsBadRequest(errdef.NewBadRequest("some error")))
}

func TestIsUnauthorized(t *testing.T) {
	assert.False(t, errdef.IsUnauthorized(errors.New("some error")))
	assert.True(t, errdef.IsUnauthorized(errdef.NewUnauthorized("some error")))
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, errdef.IsNotFound(errors.New("some error")))
	assert.True(t, errdef.IsNotFound(errdef.NewNotFound("some error")))
}

func TestIsPaymentRequired(t *testing.T) {
	assert.False(t, errdef.IsPaymentRequired(errors.New("some error")))
	assert.True(t, errdef.IsPaymentRequired(errdef.NewPaymentRequired("some error")))
}

func TestIsBadGateway(t *testing.T) {
	assert.False(t, errdef.IsBadGateway(errors.New("some error")))
	assert.True(t, errdef.IsBadGateway(errdef.NewBadGateway("some error")))
}

func TestUpstreamStatus(t *testing.T) {
	_, ok := errdef.UpstreamStatus(errors.New("some error"))
	assert.False(t, ok)

	status, ok := errdef.UpstreamStatus(fmt.Errorf("creating stack: %w", errdef.NewUpstream(http.StatusRequestEntityTooLarge, "too big")))
	assert.True(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}

type quotaError struct{}

func (quotaError) Error() string { return "quota" }

func (quotaError) Title() string { return "ProjectLimitError" }

func TestWrappedErrorsStayReachable(t *testing.T) {
	err := errdef.NewBadRequest("%w", quotaError{})

	assert.True(t, errdef.IsBadRequest(err))
	assert.ErrorAs(t, err, &quotaError{})
	title, ok := errdef.Title(err)
	assert.True(t, ok)
	assert.Equal(t, "ProjectLimitError", title)
}

func TestWithPointer(t *testing.T) {
	err := errdef.NewBadRequest("%w", errdef.WithPointer(errors.New("not a string"), "/cluster/name"))

	pointer, ok := errdef.Pointer(err)
	assert.True(t, ok)
	assert.Equal(t, "/cluster/name", pointer)
	assert.Equal(t, "not a string", err.Error())
}

func TestWithTitle(t *testing.T) {
	_, ok := errdef.Title(errors.New("some error"))
	assert.False(t, ok)

	title, ok := errdef.Title(errdef.WithTitle(errors.New("some error"), "JSON schema error"))
	assert.True(t, ok)
	assert.Equal(t, "JSON schema error", title)
}
