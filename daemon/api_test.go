package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/hive/lifecycle"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		kind   string
		status int
	}{
		{lifecycle.ErrInvalidArgument, KindInvalidArgument, http.StatusBadRequest},
		{lifecycle.ErrAlreadyEnabled, KindAlreadyEnabled, http.StatusConflict},
		{lifecycle.ErrNotEnabled, KindNotEnabled, http.StatusConflict},
		{lifecycle.ErrAlreadyExists, KindAlreadyExists, http.StatusConflict},
		{lifecycle.ErrNotFound, KindNotFound, http.StatusNotFound},
		{lifecycle.ErrImageUnavailable, KindImageUnavailable, http.StatusFailedDependency},
		{lifecycle.ErrInvalidImage, KindInvalidImage, http.StatusBadRequest},
		{lifecycle.ErrInsufficientMemory, KindInsufficientMemory, http.StatusBadRequest},
		{lifecycle.ErrInterrupted, KindInterrupted, http.StatusServiceUnavailable},
		{lifecycle.ErrCoreUnavailable, KindCoreUnavailable, http.StatusConflict},
	}
	for _, tc := range cases {
		resp, status := classify(fmt.Errorf("%w: detail", tc.err))
		assert.Equal(t, tc.kind, resp.Kind)
		assert.Equal(t, tc.status, status)
	}
}

func TestClassifyCallError(t *testing.T) {
	resp, status := classify(&lifecycle.CallError{Code: -6})
	assert.Equal(t, KindCallFailed, resp.Kind)
	assert.EqualValues(t, -6, resp.Code)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestClassifyUnknown(t *testing.T) {
	resp, status := classify(errors.New("boom"))
	assert.Equal(t, KindInternal, resp.Kind)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestKindErrorRoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		lifecycle.ErrInvalidArgument,
		lifecycle.ErrAlreadyEnabled,
		lifecycle.ErrNotEnabled,
		lifecycle.ErrAlreadyExists,
		lifecycle.ErrNotFound,
		lifecycle.ErrImageUnavailable,
		lifecycle.ErrInvalidImage,
		lifecycle.ErrInsufficientMemory,
		lifecycle.ErrInterrupted,
		lifecycle.ErrCoreUnavailable,
	} {
		resp, _ := classify(fmt.Errorf("%w: detail", sentinel))
		assert.ErrorIs(t, KindError(&resp), sentinel, resp.Kind)
	}

	resp, _ := classify(&lifecycle.CallError{Code: -22})
	var callErr *lifecycle.CallError
	require.ErrorAs(t, KindError(&resp), &callErr)
	assert.EqualValues(t, -22, callErr.Code)

	unknown := ErrorResponse{Kind: "martian", Error: "boom"}
	assert.EqualError(t, KindError(&unknown), "boom")
}
