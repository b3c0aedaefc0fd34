package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// Options configures a Driver.
type Options struct {
	// Extension is the image file extension, without the dot.
	Extension string
	// ProgressEvery logs progress after this many records; 0 disables it.
	ProgressEvery int
	// Out receives the human-readable partition report. Default: io.Discard.
	Out io.Writer
}

// Driver runs partitions one record at a time.
type Driver struct {
	fetcher Fetcher
	opts    Options
	runID   string
	log     *zap.Logger
}

// NewDriver creates a Driver that fetches through f.
func NewDriver(f Fetcher, opts Options) *Driver {
	if opts.Extension == "" {
		opts.Extension = "png"
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	runID := uuid.New().String()
	return &Driver{
		fetcher: f,
		opts:    opts,
		runID:   runID,
		log:     zap.L().With(zap.String("run_id", runID)),
	}
}

// RunID identifies this driver's run in logs.
func (d *Driver) RunID() string {
	return d.runID
}

// Path returns the image path for r inside dir.
func (d *Driver) Path(dir string, r Record) string {
	return ImagePath(dir, r.ID, d.opts.Extension)
}

// ImagePath returns {dir}/{id}.{ext}.
func ImagePath(dir, id, ext string) string {
	return filepath.Join(dir, id+"."+ext)
}

// Run processes every record of p in order. A record whose image file
// already exists is skipped; otherwise it is fetched and counted as a
// success or failure. Fetch failures never stop the loop. The returned error
// is non-nil only when the output directory cannot be created or ctx ends
// the run early; the tally then covers the records visited so far.
func (d *Driver) Run(ctx context.Context, p Partition) (Tally, error) {
	tally := Tally{Partition: p.Name}
	label := upper.String(p.Name)
	log := d.log.With(zap.String("partition", p.Name), zap.String("dir", p.Dir))

	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return tally, eris.Wrapf(err, "batch: create %s image dir", p.Name)
	}

	fmt.Fprintf(d.opts.Out, "Downloading %s satellite images...\n", label)
	log.Info("batch: partition started", zap.Int("records", len(p.Records)))

	var runErr error
	for i, rec := range p.Records {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("batch: %s interrupted after %d records: %w", p.Name, i, err)
			break
		}

		path := d.Path(p.Dir, rec)
		if exists(path) {
			tally.Skipped++
		} else if d.fetcher.Fetch(ctx, rec.Coordinate(), path) {
			tally.Succeeded++
		} else if err := ctx.Err(); err != nil {
			// Cut short by cancellation; the record is left for the next run.
			runErr = fmt.Errorf("batch: %s interrupted after %d records: %w", p.Name, i, err)
			break
		} else {
			tally.Failed++
		}

		if d.opts.ProgressEvery > 0 && (i+1)%d.opts.ProgressEvery == 0 {
			log.Info("batch: progress",
				zap.Int("done", i+1),
				zap.Int("total", len(p.Records)),
				zap.Int("succeeded", tally.Succeeded),
				zap.Int("failed", tally.Failed),
				zap.Int("skipped", tally.Skipped),
			)
		}
	}

	fmt.Fprintf(d.opts.Out, "%s images downloaded: %d\n", label, tally.Succeeded)
	fmt.Fprintf(d.opts.Out, "%s images failed    : %d\n", label, tally.Failed)
	log.Info("batch: partition finished",
		zap.Int("succeeded", tally.Succeeded),
		zap.Int("failed", tally.Failed),
		zap.Int("skipped", tally.Skipped),
	)

	return tally, runErr
}

// RunAll runs each partition in order with its own tally. A partition whose
// directory cannot be created is reported and the next one still runs;
// cancellation stops everything. The completion line is printed unless the
// run was cancelled. The first error is returned.
func (d *Driver) RunAll(ctx context.Context, partitions []Partition) ([]Tally, error) {
	tallies := make([]Tally, 0, len(partitions))
	var firstErr error
	for _, p := range partitions {
		tally, err := d.Run(ctx, p)
		tallies = append(tallies, tally)
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
		d.log.Error("batch: partition aborted", zap.String("partition", p.Name), zap.Error(err))
	}
	if ctx.Err() == nil {
		fmt.Fprintln(d.opts.Out, "Satellite image acquisition completed.")
	}
	return tallies, firstErr
}

// Status summarizes which records of a partition already have an image.
type Status struct {
	Partition string
	Total     int
	Present   int
	Missing   []Record
}

// Status checks the partition's directory without fetching anything.
func (d *Driver) Status(p Partition) Status {
	st := Status{Partition: p.Name, Total: len(p.Records)}
	for _, rec := range p.Records {
		if exists(d.Path(p.Dir, rec)) {
			st.Present++
			continue
		}
		st.Missing = append(st.Missing, rec)
	}
	return st
}

// exists reports whether path can be stat'ed. Any stat error counts as
// absent; content is never inspected.
func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
