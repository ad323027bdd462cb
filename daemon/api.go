package daemon

import (
	"errors"
	"net/http"

	"github.com/projecteru2/hive/lifecycle"
	"github.com/projecteru2/hive/types"
)

// Wire types of the daemon's unix-socket JSON API. The client package uses
// the same structs, so the two sides cannot drift.

// CreateCellRequest carries a cell descriptor plus its preload payloads.
type CreateCellRequest struct {
	Descriptor types.CellDescriptor `json:"descriptor"`
	Images     []types.PreloadImage `json:"images,omitempty"`
}

// CreateCellResponse returns the id assigned by the partitioning layer.
type CreateCellResponse struct {
	ID uint32 `json:"id"`
}

// StatusResponse is the read-only status surface: the enabled attribute and
// the live cells.
type StatusResponse struct {
	Enabled bool             `json:"enabled"`
	Cells   []lifecycle.Cell `json:"cells"`
}

// ErrorResponse is the JSON body of every non-2xx response. Kind is a stable
// discriminator the client maps back to the lifecycle sentinels; Code is
// only set for kind "call_failed" and carries the verbatim privileged-call
// code.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
	Code  int32  `json:"code,omitempty"`
}

// Error kinds, one per lifecycle error class.
const (
	KindInvalidArgument    = "invalid_argument"
	KindAlreadyEnabled     = "already_enabled"
	KindNotEnabled         = "not_enabled"
	KindAlreadyExists      = "already_exists"
	KindNotFound           = "not_found"
	KindImageUnavailable   = "image_unavailable"
	KindInvalidImage       = "invalid_image"
	KindInsufficientMemory = "insufficient_memory"
	KindInterrupted        = "interrupted"
	KindCoreUnavailable    = "core_unavailable"
	KindCallFailed         = "call_failed"
	KindInternal           = "internal"
)

// errKinds maps lifecycle sentinels to (kind, HTTP status).
var errKinds = []struct {
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

// classify maps a lifecycle error to its wire representation.
func classify(err error) (ErrorResponse, int) {
	var callErr *lifecycle.CallError
	if errors.As(err, &callErr) {
		return ErrorResponse{Kind: KindCallFailed, Error: err.Error(), Code: callErr.Code},
			http.StatusInternalServerError
	}
	for _, k := range errKinds {
		if errors.Is(err, k.err) {
			return ErrorResponse{Kind: k.kind, Error: err.Error()}, k.status
		}
	}
	return ErrorResponse{Kind: KindInternal, Error: err.Error()}, http.StatusInternalServerError
}

// KindError reconstructs the lifecycle error a wire kind stands for.
// Used by the client so callers can errors.Is/As against the sentinels.
func KindError(resp *ErrorResponse) error {
	if resp.Kind == KindCallFailed {
		return &lifecycle.CallError{Code: resp.Code}
	}
	for _, k := range errKinds {
		if resp.Kind == k.kind {
			return k.err
		}
	}
	return errors.New(resp.Error)
}
