package cell

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/projecteru2/core/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	cmdcore "github.com/projecteru2/hive/cmd/core"
	"github.com/projecteru2/hive/types"
)

// Handler implements Actions.
type Handler struct {
	cmdcore.BaseHandler
}

func (h Handler) Create(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	desc, err := cmdcore.LoadCellDescriptor(args[0])
	if err != nil {
		return err
	}
	loads, _ := cmd.Flags().GetStringArray("load")
	images, err := readPreloadImages(loads)
	if err != nil {
		return err
	}
	id, err := cmdcore.NewClient(conf).CreateCell(ctx, desc, images)
	if err != nil {
		return err
	}
	log.WithFunc("cmd.cell.create").Infof(ctx, "created cell %q (id %d)", desc.Name, id)
	return nil
}

func (h Handler) Destroy(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	if err := cmdcore.NewClient(conf).DestroyCell(ctx, args[0]); err != nil {
		return err
	}
	log.WithFunc("cmd.cell.destroy").Infof(ctx, "destroyed cell %q", args[0])
	return nil
}

func (h Handler) List(cmd *cobra.Command, _ []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	cells, err := cmdcore.NewClient(conf).Cells(ctx)
	if err != nil {
		return err
	}

	// Plain names when piped, a table on a terminal.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		for _, c := range cells {
			fmt.Println(c.Name)
		}
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCPUS")
	for _, c := range cells {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, joinInts(c.CPUs))
	}
	return tw.Flush()
}

// readPreloadImages parses repeated PATH@ADDR flags and loads the payloads.
func readPreloadImages(loads []string) ([]types.PreloadImage, error) {
	var images []types.PreloadImage
	for _, l := range loads {
		path, addr, ok := strings.Cut(l, "@")
		if !ok {
			return nil, fmt.Errorf("bad --load %q, want PATH@ADDR", l)
		}
		target, err := cmdcore.ParseAddr(addr)
		if err != nil {
			return nil, fmt.Errorf("bad --load %q: %w", l, err)
		}
		data, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
		if err != nil {
			return nil, fmt.Errorf("read preload image: %w", err)
		}
		images = append(images, types.PreloadImage{TargetAddress: target, Data: data})
	}
	return images, nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
