package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/localnerve/jam-build-crm/internal/mutation/relations"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Report half-written service relationships",
	Long: `Scans every service edge (service-leads, service-clients) and lists references
that only one side records. Exits non-zero when anything dangles.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		n, err := writeLinks(getContext(), cmd.OutOrStdout(), conn)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%d dangling references", n)
		}
		return nil
	},
}

func writeLinks(ctx context.Context, w io.Writer, conn *gorm.DB) (int, error) {
	var all []relations.Dangling
	for _, edge := range relations.Edges() {
		dangling, err := relations.Check(ctx, conn, edge)
		if err != nil {
			return 0, fmt.Errorf("check %s: %w", edge.Name, err)
		}
		all = append(all, dangling...)
	}
	if len(all) == 0 {
		fmt.Fprintln(w, "no dangling references")
		return 0, nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EDGE\tPARENT\tCHILD\tREASON")
	for _, d := range all {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Edge, d.Parent, d.Child, d.Reason)
	}
	return len(all), tw.Flush()
}
