package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/imagery-cli/internal/batch"
	"github.com/sells-group/imagery-cli/internal/config"
	"github.com/sells-group/imagery-cli/internal/imagery"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download missing images for each partition",
	Long:  "Fetches one image per record for the train and test partitions. Records whose image file already exists are skipped, so an interrupted run can simply be restarted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		names, _ := cmd.Flags().GetStringSlice("partition")
		limit, _ := cmd.Flags().GetInt("limit")

		_, err := runFetch(ctx, cfg, names, limit, cmd.OutOrStdout())
		return err
	},
}

func init() {
	fetchCmd.Flags().StringSlice("partition", partitionOrder, "partitions to fetch (train, test)")
	fetchCmd.Flags().Int("limit", 0, "max records per partition (0 = all)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(ctx context.Context, c *config.Config, names []string, limit int, out io.Writer) ([]batch.Tally, error) {
	parts, err := loadPartitions(ctx, c.Dataset, names, limit)
	if err != nil {
		return nil, err
	}

	client := imagery.NewClient(imageryOptions(c.Export))
	driver := batch.NewDriver(client, batch.Options{
		Extension:     client.Extension(),
		ProgressEvery: c.Dataset.ProgressEvery,
		Out:           out,
	})

	zap.L().Info("fetch: starting",
		zap.String("run_id", driver.RunID()),
		zap.String("endpoint", c.Export.Endpoint),
		zap.Int("partitions", len(parts)),
	)
	return driver.RunAll(ctx, parts)
}
