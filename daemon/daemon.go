// Package daemon serves the lifecycle controller over a unix-socket JSON
// API and owns its process-level plumbing: singleton lock, pid file, and the
// shutdown hook that disables the hypervisor on orderly exit.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/projecteru2/core/log"
	"golang.org/x/sync/errgroup"

	"github.com/projecteru2/hive/config"
	"github.com/projecteru2/hive/lifecycle"
	"github.com/projecteru2/hive/utils"
)

const shutdownGrace = 5 * time.Second

// Daemon runs the control-plane API for one host.
type Daemon struct {
	conf *config.Config
	life lifecycle.Lifecycle
	fl   *flock.Flock
}

// New creates a Daemon around a lifecycle controller.
func New(conf *config.Config, life lifecycle.Lifecycle) *Daemon {
	return &Daemon{conf: conf, life: life}
}

// Run serves the API until ctx is cancelled, then runs the shutdown hook.
// Exactly one daemon may run per host; a second Run fails on the instance
// lock instead of fighting over the socket.
func (d *Daemon) Run(ctx context.Context) error {
	logger := log.WithFunc("daemon.Run")

	if err := d.conf.EnsureRunDir(); err != nil {
		return fmt.Errorf("ensure run dir: %w", err)
	}

	d.fl = flock.New(d.conf.InstanceLock())
	held, err := d.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !held {
		return fmt.Errorf("another instance holds %s", d.conf.InstanceLock())
	}
	defer d.fl.Unlock() //nolint:errcheck

	if err := utils.WritePIDFile(d.conf.PIDFile(), os.Getpid()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(d.conf.PIDFile()) //nolint:errcheck

	// Clean up a stale socket from a previous crash; the instance lock
	// already proved nobody is listening on it.
	_ = os.Remove(d.conf.SocketPath())
	ln, err := net.Listen("unix", d.conf.SocketPath())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.conf.SocketPath(), err)
	}

	srv := &http.Server{
		Handler:           d.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof(ctx, "serving on %s", d.conf.SocketPath())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	serveErr := g.Wait()
	d.shutdownHook()
	return serveErr
}

// shutdownHook disables the hypervisor during orderly shutdown. NotEnabled
// counts as success; anything else is a critical failure that is logged but
// must not block shutdown.
func (d *Daemon) shutdownHook() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	logger := log.WithFunc("daemon.shutdownHook")

	err := d.life.Disable(ctx)
	switch {
	case err == nil:
		logger.Infof(ctx, "hypervisor disabled on shutdown")
	case errors.Is(err, lifecycle.ErrNotEnabled):
		// Nothing was running.
	default:
		logger.Errorf(ctx, err, "ordered shutdown failed")
	}
}
