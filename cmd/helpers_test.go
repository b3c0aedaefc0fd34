package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/imagery-cli/internal/config"
)

// testConfig returns a config whose partitions read CSV files under dir and
// write images beneath it.
func testConfig(t *testing.T, dir, endpoint string) *config.Config {
	t.Helper()
	return &config.Config{
		Export: config.ExportConfig{
			Endpoint:    endpoint,
			Size:        32,
			AreaMeters:  200,
			Format:      "png",
			SpatialRef:  4326,
			TimeoutSecs: 2,
			MaxRetries:  3,
			UserAgent:   "imagery-cli-test",
		},
		Dataset: config.DatasetConfig{
			Train:     config.PartitionConfig{Records: filepath.Join(dir, "train.csv"), ImageDir: filepath.Join(dir, "images", "train")},
			Test:      config.PartitionConfig{Records: filepath.Join(dir, "test.csv"), ImageDir: filepath.Join(dir, "images", "test")},
			LatColumn: "lat",
			LonColumn: "long",
		},
		Log: config.LogConfig{Level: "info", Format: "console"},
	}
}

func writeCSV(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func tilePNG(t *testing.T, size int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, size, size))))
	return buf.Bytes()
}
