// Package imagery downloads one raster image per coordinate from an ArcGIS
// MapServer export endpoint and stores it as an opaque RGB file.
package imagery

import (
	"bytes"
	"context"
	"image"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/sells-group/imagery-cli/internal/geo"
	"github.com/sells-group/imagery-cli/internal/resilience"

	// Decoders for formats the export service can return.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultEndpoint is the ESRI World Imagery export operation.
const DefaultEndpoint = "https://services.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/export"

const (
	// maxBodyBytes caps how much of an export response is read.
	maxBodyBytes = 32 << 20
	// maxScale bounds each decoded dimension to this multiple of the
	// configured size.
	maxScale = 4
)

// Options configures a Client.
type Options struct {
	Endpoint   string
	Width      int
	Height     int
	AreaMeters float64
	Format     string
	SpatialRef int
	Timeout    time.Duration // per attempt
	MaxRetries int           // total attempts
	UserAgent  string
	RatePerSec float64 // 0 disables throttling
}

// DefaultOptions returns the settings used against the public service.
func DefaultOptions() Options {
	return Options{
		Endpoint:   DefaultEndpoint,
		Width:      256,
		Height:     256,
		AreaMeters: 200,
		Format:     "png",
		SpatialRef: geo.SRID,
		Timeout:    20 * time.Second,
		MaxRetries: 3,
		UserAgent:  "imagery-cli/1.0",
	}
}

// Client fetches and persists export images.
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
}

// NewClient creates a Client, filling zero fields from DefaultOptions.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.Endpoint == "" {
		opts.Endpoint = def.Endpoint
	}
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}
	if opts.AreaMeters <= 0 {
		opts.AreaMeters = def.AreaMeters
	}
	if opts.Format == "" {
		opts.Format = def.Format
	}
	if opts.SpatialRef == 0 {
		opts.SpatialRef = def.SpatialRef
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}

	c := &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts: opts,
	}
	if opts.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), 1)
	}
	return c
}

// Options returns the effective options.
func (c *Client) Options() Options {
	return c.opts
}

// Extension returns the file extension images from this client are stored
// with.
func (c *Client) Extension() string {
	return Extension(c.opts.Format)
}

// ExportParams builds the export query for bbox.
func ExportParams(bbox geo.BoundingBox, opts Options) url.Values {
	sr := strconv.Itoa(opts.SpatialRef)
	return url.Values{
		"bbox":    {bbox.String()},
		"bboxSR":  {sr},
		"imageSR": {sr},
		"size":    {strconv.Itoa(opts.Width) + "," + strconv.Itoa(opts.Height)},
		"format":  {opts.Format},
		"f":       {"image"},
	}
}

// ExportURL returns the full request URL for bbox, keeping any query
// parameters already present on the endpoint.
func (c *Client) ExportURL(bbox geo.BoundingBox) (string, error) {
	u, err := url.Parse(c.opts.Endpoint)
	if err != nil {
		return "", eris.Wrap(err, "imagery: parse endpoint")
	}
	q := u.Query()
	for k, v := range ExportParams(bbox, c.opts) {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch downloads the image centered on coord and writes it to dest. It
// makes at most MaxRetries attempts, back to back, and reports whether one of
// them succeeded. No file is left at dest unless it returns true.
func (c *Client) Fetch(ctx context.Context, coord geo.Coordinate, dest string) bool {
	bbox := geo.ForCoordinate(coord, c.opts.AreaMeters)
	reqURL, err := c.ExportURL(bbox)
	if err != nil {
		zap.L().Debug("imagery: build request", zap.String("path", dest), zap.Error(err))
		return false
	}

	retry := resilience.ImmediateRetryConfig(c.opts.MaxRetries)
	retry.OnRetry = resilience.RetryLogger("imagery", "export", zap.String("path", dest))

	attempts := 0
	err = resilience.Do(ctx, retry, func(ctx context.Context) error {
		attempts++
		return c.attempt(ctx, reqURL, dest)
	})
	if err != nil {
		zap.L().Log(failureLevel(err), "imagery: fetch failed",
			zap.String("path", dest),
			zap.Stringer("bbox", bbox),
			zap.Int("attempts", attempts),
			zap.String("kind", string(resilience.KindOf(err))),
			zap.Error(err),
		)
		return false
	}
	return true
}

// failureLevel picks the log level for a record that exhausted its
// attempts: debug for transient failures, warn for anything else.
func failureLevel(err error) zapcore.Level {
	if resilience.IsTransient(err) {
		return zapcore.DebugLevel
	}
	return zapcore.WarnLevel
}

// attempt performs one request/decode/save cycle. A nil return is the only
// success.
func (c *Client) attempt(ctx context.Context, reqURL, dest string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return resilience.NewError(resilience.KindNetwork, eris.Wrap(err, "imagery: rate limiter wait"))
		}
	}

	img, err := c.download(ctx, reqURL)
	if err != nil {
		return err
	}

	rgb := Normalize(img, c.opts.Width, c.opts.Height)
	if err := Save(rgb, dest); err != nil {
		return resilience.NewError(resilience.KindStorage, err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, reqURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, resilience.NewError(resilience.KindNetwork, eris.Wrap(err, "imagery: create request"))
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewError(resilience.KindNetwork, eris.Wrap(err, "imagery: export request"))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.NewStatusError(eris.Errorf("imagery: unexpected status %d", resp.StatusCode), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, resilience.NewError(resilience.KindNetwork, eris.Wrap(err, "imagery: read body"))
	}
	if len(body) > maxBodyBytes {
		return nil, resilience.NewError(resilience.KindDecode, eris.Errorf("imagery: response exceeds %d bytes", maxBodyBytes))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return nil, resilience.NewError(resilience.KindDecode, eris.Wrap(err, "imagery: decode image header"))
	}
	if cfg.Width > maxScale*c.opts.Width || cfg.Height > maxScale*c.opts.Height {
		return nil, resilience.NewError(resilience.KindDecode,
			eris.Errorf("imagery: image %dx%d exceeds limit for %dx%d", cfg.Width, cfg.Height, c.opts.Width, c.opts.Height))
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, resilience.NewError(resilience.KindDecode, eris.Wrap(err, "imagery: decode image"))
	}
	zap.L().Debug("imagery: decoded export",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)
	return img, nil
}
