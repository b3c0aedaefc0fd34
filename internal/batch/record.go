// Package batch drives the resumable, sequential download of one image per
// record for each dataset partition.
package batch

import (
	"context"

	"github.com/sells-group/imagery-cli/internal/geo"
)

// Record is one geocoded row. ID names its image file and must be unique
// within a partition.
type Record struct {
	ID  string
	Lat float64
	Lon float64
}

// Coordinate returns the record's position.
func (r Record) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: r.Lat, Lon: r.Lon}
}

// Fetcher obtains the image for coord and writes it to dest, reporting
// success. Implementations never leave a file at dest on failure.
type Fetcher interface {
	Fetch(ctx context.Context, coord geo.Coordinate, dest string) bool
}

// Partition is an ordered record collection and the directory its images go
// to.
type Partition struct {
	Name    string
	Records []Record
	Dir     string
}

// Tally counts the outcomes of one partition run. Skipped records already had
// an image and count as neither success nor failure.
type Tally struct {
	Partition string
	Succeeded int
	Failed    int
	Skipped   int
}

// Processed is the number of records the run visited.
func (t Tally) Processed() int {
	return t.Succeeded + t.Failed + t.Skipped
}
