// Package system holds the hypervisor-level commands: the daemon itself and
// the enable/disable/status client operations.
package system

import "github.com/spf13/cobra"

// Actions defines hypervisor-level operations.
type Actions interface {
	Daemon(cmd *cobra.Command, args []string) error
	Enable(cmd *cobra.Command, args []string) error
	Disable(cmd *cobra.Command, args []string) error
	Status(cmd *cobra.Command, args []string) error
}

// Commands builds the system command set.
func Commands(h Actions) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "daemon",
			Short: "Run the hive control-plane daemon",
			RunE:  h.Daemon,
		},
		{
			Use:   "enable SYSTEM_DESCRIPTOR",
			Short: "Enable the hypervisor from a system descriptor file",
			Args:  cobra.ExactArgs(1),
			RunE:  h.Enable,
		},
		{
			Use:   "disable",
			Short: "Disable the hypervisor and restore all cores",
			RunE:  h.Disable,
		},
		{
			Use:   "status",
			Short: "Show hypervisor state and live cells",
			RunE:  h.Status,
		},
	}
}
