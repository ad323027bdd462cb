package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/projecteru2/core/log"
	coretypes "github.com/projecteru2/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/hive/config"
	"github.com/projecteru2/hive/lifecycle"
	"github.com/projecteru2/hive/types"
)

func TestMain(m *testing.M) {
	_ = log.SetupLog(context.TODO(), &coretypes.ServerLogConfig{Level: "fatal"}, "")
	os.Exit(m.Run())
}

// fakeLife scripts lifecycle outcomes for handler tests.
type fakeLife struct {
	enabled    bool
	cells      []lifecycle.Cell
	err        error
	createID   uint32
	enabledArg *types.SystemDescriptor
	destroyed  string
}

func (f *fakeLife) Enable(_ context.Context, sys *types.SystemDescriptor) error {
	f.enabledArg = sys
	return f.err
}
func (f *fakeLife) Disable(context.Context) error { return f.err }
func (f *fakeLife) CreateCell(_ context.Context, _ *types.CellDescriptor, _ []types.PreloadImage) (uint32, error) {
	return f.createID, f.err
}
func (f *fakeLife) DestroyCell(_ context.Context, name string) error {
	f.destroyed = name
	return f.err
}
func (f *fakeLife) Enabled() bool { return f.enabled }
func (f *fakeLife) Cells(context.Context) ([]lifecycle.Cell, error) {
	return f.cells, f.err
}

func newTestServer(t *testing.T, life lifecycle.Lifecycle) *httptest.Server {
	t.Helper()
	d := New(config.DefaultConfig(), life)
	srv := httptest.NewServer(d.routes())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandleEnable(t *testing.T) {
	life := &fakeLife{}
	srv := newTestServer(t, life)

	sys := types.SystemDescriptor{
		HypervisorMemory: types.MemoryRegion{PhysStart: 0x3b000000, Size: 16 << 20},
		RootCell:         types.CellDescriptor{Name: "root", CPUs: []int{0}},
	}
	resp := doJSON(t, srv, http.MethodPut, "/enable", sys)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NotNil(t, life.enabledArg)
	assert.Equal(t, "root", life.enabledArg.RootCell.Name)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestHandleEnableError(t *testing.T) {
	life := &fakeLife{err: lifecycle.ErrAlreadyEnabled}
	srv := newTestServer(t, life)

	resp := doJSON(t, srv, http.MethodPut, "/enable", types.SystemDescriptor{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var werr ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&werr))
	assert.Equal(t, KindAlreadyEnabled, werr.Kind)
}

func TestHandleEnableMalformedBody(t *testing.T) {
	srv := newTestServer(t, &fakeLife{})

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/enable", bytes.NewBufferString("{nope"))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var werr ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&werr))
	assert.Equal(t, KindInvalidArgument, werr.Kind)
}

func TestHandleCreateCell(t *testing.T) {
	life := &fakeLife{createID: 5}
	srv := newTestServer(t, life)

	req := CreateCellRequest{
		Descriptor: types.CellDescriptor{Name: "guest", CPUs: []int{2}},
	}
	resp := doJSON(t, srv, http.MethodPost, "/cells", req)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var out CreateCellResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.EqualValues(t, 5, out.ID)
}

func TestHandleDestroyCell(t *testing.T) {
	life := &fakeLife{}
	srv := newTestServer(t, life)

	resp := doJSON(t, srv, http.MethodDelete, "/cells/guest", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "guest", life.destroyed)
}

func TestHandleDestroyCellNotFound(t *testing.T) {
	life := &fakeLife{err: lifecycle.ErrNotFound}
	srv := newTestServer(t, life)

	resp := doJSON(t, srv, http.MethodDelete, "/cells/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleStatus(t *testing.T) {
	life := &fakeLife{
		enabled: true,
		cells:   []lifecycle.Cell{{Name: "root", ID: 0, CPUs: []int{0, 1}}},
	}
	srv := newTestServer(t, life)

	resp := doJSON(t, srv, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var st StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.Enabled)
	require.Len(t, st.Cells, 1)
	assert.Equal(t, "root", st.Cells[0].Name)
}

func TestHandleListCells(t *testing.T) {
	life := &fakeLife{cells: []lifecycle.Cell{{Name: "root"}, {Name: "guest"}}}
	srv := newTestServer(t, life)

	resp := doJSON(t, srv, http.MethodGet, "/cells", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var cells []lifecycle.Cell
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cells))
	require.Len(t, cells, 2)
	assert.Equal(t, "guest", cells[1].Name)
}
