package main

import (
	"context"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/imagery-cli/internal/batch"
	"github.com/sells-group/imagery-cli/internal/config"
	"github.com/sells-group/imagery-cli/internal/dataset"
	"github.com/sells-group/imagery-cli/internal/imagery"
)

// partitionOrder is the order partitions are processed in.
var partitionOrder = []string{"train", "test"}

// imageryOptions maps export settings onto the fetch client.
func imageryOptions(c config.ExportConfig) imagery.Options {
	return imagery.Options{
		Endpoint:   c.Endpoint,
		Width:      c.Size,
		Height:     c.Size,
		AreaMeters: c.AreaMeters,
		Format:     c.Format,
		SpatialRef: c.SpatialRef,
		Timeout:    c.Timeout(),
		MaxRetries: c.MaxRetries,
		UserAgent:  c.UserAgent,
		RatePerSec: c.RatePerSec,
	}
}

// datasetSource maps dataset settings onto the record loader.
func datasetSource(c config.DatasetConfig) dataset.Source {
	return dataset.Source{
		Columns:   dataset.Columns{ID: c.IDColumn, Lat: c.LatColumn, Lon: c.LonColumn},
		Sheet:     c.Sheet,
		Delimiter: c.DelimiterRune(),
	}
}

// selectPartitions validates names and returns them in processing order.
func selectPartitions(names []string) ([]string, error) {
	for _, n := range names {
		if !slices.Contains(partitionOrder, n) {
			return nil, eris.Errorf("unknown partition %q (want train or test)", n)
		}
	}
	var out []string
	for _, n := range partitionOrder {
		if slices.Contains(names, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

// loadPartitions reads the record file of each named partition. limit > 0
// keeps only the first limit records.
func loadPartitions(ctx context.Context, c config.DatasetConfig, names []string, limit int) ([]batch.Partition, error) {
	selected, err := selectPartitions(names)
	if err != nil {
		return nil, err
	}

	parts := make([]batch.Partition, 0, len(selected))
	for _, name := range selected {
		pc := c.Train
		if name == "test" {
			pc = c.Test
		}
		recs, err := dataset.Load(ctx, pc.Records, datasetSource(c))
		if err != nil {
			return nil, eris.Wrapf(err, "load %s records", name)
		}
		if limit > 0 && len(recs) > limit {
			recs = recs[:limit]
		}
		parts = append(parts, batch.Partition{Name: name, Records: recs, Dir: pc.ImageDir})
	}
	return parts, nil
}
