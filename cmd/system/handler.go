package system

import (
	"fmt"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"

	cmdcore "github.com/projecteru2/hive/cmd/core"
	"github.com/projecteru2/hive/cpu"
	"github.com/projecteru2/hive/daemon"
	"github.com/projecteru2/hive/firmware"
	"github.com/projecteru2/hive/hypercall"
	"github.com/projecteru2/hive/lifecycle"
	"github.com/projecteru2/hive/memmap"
)

// Handler implements Actions.
type Handler struct {
	cmdcore.BaseHandler
}

// Daemon assembles the real controller and serves it until interrupted.
func (h Handler) Daemon(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}

	ctrl := lifecycle.New(conf,
		firmware.NewDirLoader(conf.FirmwareDir),
		memmap.NewDevMem(conf.MemPath),
		cpu.NewSysfs(""),
		cpu.NewRendezvous(),
		hypercall.Bind,
	)
	return daemon.New(conf, ctrl).Run(ctx)
}

func (h Handler) Enable(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	sys, err := cmdcore.LoadSystemDescriptor(args[0])
	if err != nil {
		return err
	}
	if err := cmdcore.NewClient(conf).Enable(ctx, sys); err != nil {
		return err
	}
	log.WithFunc("cmd.enable").Infof(ctx, "hypervisor enabled, root cell %q", sys.RootCell.Name)
	return nil
}

func (h Handler) Disable(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	if err := cmdcore.NewClient(conf).Disable(ctx); err != nil {
		return err
	}
	log.WithFunc("cmd.disable").Infof(ctx, "hypervisor disabled")
	return nil
}

func (h Handler) Status(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	st, err := cmdcore.NewClient(conf).Status(ctx)
	if err != nil {
		return err
	}
	state := "disabled"
	if st.Enabled {
		state = "enabled"
	}
	fmt.Printf("hypervisor: %s\n", state)
	for _, c := range st.Cells {
		fmt.Printf("cell %d: %s (cpus %v)\n", c.ID, c.Name, c.CPUs)
	}
	return nil
}
