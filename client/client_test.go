package client

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/projecteru2/core/log"
	coretypes "github.com/projecteru2/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projecteru2/hive/config"
	"github.com/projecteru2/hive/daemon"
	"github.com/projecteru2/hive/lifecycle"
	"github.com/projecteru2/hive/types"
)

func TestMain(m *testing.M) {
	_ = log.SetupLog(context.TODO(), &coretypes.ServerLogConfig{Level: "fatal"}, "")
	os.Exit(m.Run())
}

// fakeLife is a scriptable lifecycle behind the daemon under test.
type fakeLife struct {
	mu       sync.Mutex
	enabled  bool
	cells    []lifecycle.Cell
	err      error
	createID uint32
	disables int
}

func (f *fakeLife) Enable(context.Context, *types.SystemDescriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.enabled = true
	return nil
}

func (f *fakeLife) Disable(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disables++
	if f.err != nil {
		return f.err
	}
	if !f.enabled {
		return lifecycle.ErrNotEnabled
	}
	f.enabled = false
	return nil
}

func (f *fakeLife) CreateCell(context.Context, *types.CellDescriptor, []types.PreloadImage) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createID, f.err
}

func (f *fakeLife) DestroyCell(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeLife) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeLife) Cells(context.Context) ([]lifecycle.Cell, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cells, f.err
}

func (f *fakeLife) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// startDaemon runs a real daemon over a unix socket in a temp run dir and
// returns a connected client.
func startDaemon(t *testing.T, life lifecycle.Lifecycle) (*Client, *config.Config, func() error) {
	t.Helper()
	conf := config.DefaultConfig()
	conf.RunDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- daemon.New(conf, life).Run(ctx) }()

	c := New(conf.SocketPath())
	require.NoError(t, c.WaitReady(ctx, 5*time.Second))

	var stopOnce sync.Once
	var stopErr error
	stop := func() error {
		stopOnce.Do(func() {
			cancel()
			select {
			case stopErr = <-done:
			case <-time.After(5 * time.Second):
				stopErr = context.DeadlineExceeded
			}
		})
		return stopErr
	}
	t.Cleanup(func() { _ = stop() })
	return c, conf, stop
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	life := &fakeLife{createID: 4}
	c, _, _ := startDaemon(t, life)

	assert.False(t, c.Enabled())

	sys := &types.SystemDescriptor{
		HypervisorMemory: types.MemoryRegion{PhysStart: 0x3b000000, Size: 16 << 20},
		RootCell:         types.CellDescriptor{Name: "root", CPUs: []int{0}},
	}
	require.NoError(t, c.Enable(ctx, sys))
	assert.True(t, c.Enabled())

	id, err := c.CreateCell(ctx, &types.CellDescriptor{Name: "guest", CPUs: []int{2}}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, id)

	require.NoError(t, c.DestroyCell(ctx, "guest"))
	require.NoError(t, c.Disable(ctx))
	assert.False(t, c.Enabled())
}

func TestClientErrorMapping(t *testing.T) {
	ctx := context.Background()
	life := &fakeLife{}
	c, _, _ := startDaemon(t, life)

	// Sentinels survive the wire round trip.
	life.setErr(lifecycle.ErrNotFound)
	assert.ErrorIs(t, c.DestroyCell(ctx, "ghost"), lifecycle.ErrNotFound)

	life.setErr(lifecycle.ErrAlreadyEnabled)
	assert.ErrorIs(t, c.Enable(ctx, &types.SystemDescriptor{}), lifecycle.ErrAlreadyEnabled)

	// So do privileged-call codes.
	life.setErr(&lifecycle.CallError{Code: -6})
	var callErr *lifecycle.CallError
	require.ErrorAs(t, c.Enable(ctx, &types.SystemDescriptor{}), &callErr)
	assert.EqualValues(t, -6, callErr.Code)
}

func TestClientStatus(t *testing.T) {
	ctx := context.Background()
	life := &fakeLife{
		enabled: true,
		cells:   []lifecycle.Cell{{Name: "root", ID: 0, CPUs: []int{0, 1}}},
	}
	c, _, _ := startDaemon(t, life)

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Enabled)
	require.Len(t, st.Cells, 1)

	cells, err := c.Cells(ctx)
	require.NoError(t, err)
	assert.Equal(t, "root", cells[0].Name)
}

func TestDaemonShutdownHook(t *testing.T) {
	life := &fakeLife{enabled: true}
	_, conf, stop := startDaemon(t, life)

	require.NoError(t, stop())

	// Orderly shutdown disables the hypervisor and cleans the pid file.
	life.mu.Lock()
	disables, enabled := life.disables, life.enabled
	life.mu.Unlock()
	assert.Equal(t, 1, disables)
	assert.False(t, enabled)

	_, err := os.Stat(conf.PIDFile())
	assert.True(t, os.IsNotExist(err))
}

func TestDaemonSingleton(t *testing.T) {
	life := &fakeLife{}
	_, conf, _ := startDaemon(t, life)

	// A second daemon in the same run dir must refuse to start.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := daemon.New(conf, &fakeLife{}).Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another instance")
}
