// Package cell holds the cell lifecycle subcommands.
package cell

import "github.com/spf13/cobra"

// Actions defines cell lifecycle operations.
type Actions interface {
	Create(cmd *cobra.Command, args []string) error
	Destroy(cmd *cobra.Command, args []string) error
	List(cmd *cobra.Command, args []string) error
}

// Command builds the "cell" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	cellCmd := &cobra.Command{
		Use:   "cell",
		Short: "Manage cells inside the running hypervisor",
	}

	createCmd := &cobra.Command{
		Use:   "create CELL_DESCRIPTOR",
		Short: "Create a cell from a descriptor file",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Create,
	}
	createCmd.Flags().StringArray("load", nil,
		"preload image as PATH@ADDR (repeatable), e.g. inmate.bin@0xf0000")

	destroyCmd := &cobra.Command{
		Use:   "destroy NAME",
		Short: "Destroy a cell and restore its cores",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Destroy,
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List live cells",
		RunE:    h.List,
	}

	cellCmd.AddCommand(createCmd, destroyCmd, listCmd)
	return cellCmd
}
