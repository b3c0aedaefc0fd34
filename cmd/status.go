package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/imagery-cli/internal/batch"
	"github.com/sells-group/imagery-cli/internal/config"
	"github.com/sells-group/imagery-cli/internal/imagery"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which records still lack an image",
	Long:  "Compares each partition's records against its image directory without contacting the export service.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, _ := cmd.Flags().GetStringSlice("partition")
		list, _ := cmd.Flags().GetBool("list")
		return runStatus(cmd.Context(), cfg, names, list, cmd.OutOrStdout())
	},
}

func init() {
	statusCmd.Flags().StringSlice("partition", partitionOrder, "partitions to check (train, test)")
	statusCmd.Flags().Bool("list", false, "print the id of every missing record")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(ctx context.Context, c *config.Config, names []string, list bool, out io.Writer) error {
	parts, err := loadPartitions(ctx, c.Dataset, names, 0)
	if err != nil {
		return err
	}

	driver := batch.NewDriver(nil, batch.Options{Extension: imagery.Extension(c.Export.Format)})
	fmt.Fprintln(out, "=== Imagery Status ===")
	for _, p := range parts {
		st := driver.Status(p)
		fmt.Fprintf(out, "%-6s total: %-8d present: %-8d missing: %d\n", st.Partition, st.Total, st.Present, len(st.Missing))
		if list {
			for _, r := range st.Missing {
				fmt.Fprintf(out, "  %s\t%v\t%v\n", r.ID, r.Lat, r.Lon)
			}
		}
	}
	return nil
}
