// Package renderer turns a scene and a camera into a surface.
//
// Renderers are looked up by name.  "default" renders one row after another on
// the calling goroutine; "multi-threaded" renders rows on a bounded pool of
// goroutines.  Both write every pixel exactly once and produce identical
// surfaces for the same inputs.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"whitted/camera"
	"whitted/color"
	"whitted/material"
	"whitted/scene"
	"whitted/surface"

	"github.com/golang/glog"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

var (
	ErrUnknownRenderer = errors.New("unknown renderer")
	ErrMissingInput    = errors.New("missing render input")
)

type Renderer interface {
	Render(ctx context.Context, s *scene.Scene, c *camera.Camera) (*surface.Surface, error)
}

type Options struct {
	// Samples is the side of the square grid of sub-pixel samples averaged
	// into each pixel.  Values below 1 mean a single sample at the pixel
	// center.
	Samples int

	// Workers bounds the number of rows a parallel renderer works on at once.
	// Values below 1 mean runtime.NumCPU().
	Workers int
}

func (o Options) samples() int {
	if o.Samples < 1 {
		return 1
	}
	return o.Samples
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return runtime.NumCPU()
	}
	return o.Workers
}

// Factory builds a renderer from options.
type Factory func(name string, opts Options) Renderer

var (
	registryLock sync.RWMutex
	registry     = map[string]Factory{}
)

// Register makes a renderer available to New under name.  It panics if name is
// already taken.
func Register(name string, f Factory) {
	registryLock.Lock()
	defer registryLock.Unlock()

	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("renderer %q registered twice", name))
	}
	registry[name] = f
}

func New(name string, opts Options) (Renderer, error) {
	registryLock.RLock()
	f, ok := registry[name]
	registryLock.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownRenderer, name, Names())
	}
	return f(name, opts), nil
}

// Names lists the registered renderers in sorted order.
func Names() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("default", func(name string, opts Options) Renderer {
		return &Sequential{name: name, opts: opts}
	})
	Register("multi-threaded", func(name string, opts Options) Renderer {
		return &Parallel{name: name, opts: opts}
	})
}

var (
	rendererKey = tag.MustNewKey("renderer")

	pixelsRendered = stats.Int64("whitted/pixels_rendered", "Pixels written to a surface", stats.UnitDimensionless)
	renderLatency  = stats.Float64("whitted/render_latency", "Wall time of a complete render pass", stats.UnitMilliseconds)

	pixelsRenderedView = &view.View{
		Name:        "whitted/pixels_rendered",
		Description: "Total pixels rendered",
		TagKeys:     []tag.Key{rendererKey},
		Measure:     pixelsRendered,
		Aggregation: view.Sum(),
	}
	renderLatencyView = &view.View{
		Name:        "whitted/render_latency",
		Description: "Distribution of render pass latencies",
		TagKeys:     []tag.Key{rendererKey},
		Measure:     renderLatency,
		Aggregation: view.Distribution(10, 100, 1000, 10000, 60000, 600000),
	}
)

// The same measures are recorded through OpenTelemetry for whichever meter
// provider is installed globally.  Until one is, recording is a no-op.
var (
	otelMeter = metric.Must(global.Meter("whitted/renderer"))

	otelPixelsRendered = otelMeter.NewInt64Counter(
		"whitted/pixels_rendered",
		metric.WithDescription("Pixels written to a surface"))
	otelRenderLatency = otelMeter.NewFloat64ValueRecorder(
		"whitted/render_latency",
		metric.WithDescription("Wall time of a complete render pass in milliseconds"))
)

// RegisterMetrics registers the renderer views with opencensus.  Passes
// rendered before it is called are not counted.
func RegisterMetrics() error {
	return view.Register(pixelsRenderedView, renderLatencyView)
}

// progress logs completed rows at most once a second.
type progress struct {
	name    string
	total   int
	done    int64
	limiter *rate.Limiter
}

func (p *progress) rowDone() {
	done := atomic.AddInt64(&p.done, 1)
	if p.limiter.Allow() {
		glog.V(1).Infof("%s: rendered %d/%d rows", p.name, done, p.total)
	}
}

// pass is the state of one render of a scene through a camera.
type pass struct {
	name    string
	scene   *scene.Scene
	camera  *camera.Camera
	samples int

	surface  *surface.Surface
	progress *progress

	start time.Time
	span  trace.Span
}

func beginPass(ctx context.Context, spanName, name string, s *scene.Scene, c *camera.Camera, opts Options) (context.Context, *pass, error) {
	if s == nil || c == nil {
		return ctx, nil, fmt.Errorf("%w: renderer %q needs both a scene and a camera", ErrMissingInput, name)
	}

	p := &pass{
		name:    name,
		scene:   s,
		camera:  c,
		samples: opts.samples(),
		surface: surface.New(c.Plane.Cols, c.Plane.Rows),
		progress: &progress{
			name:    name,
			total:   c.Plane.Rows,
			limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		},
		start: time.Now(),
	}

	tracer := otel.Tracer("whitted/renderer")
	ctx, p.span = tracer.Start(ctx, spanName)
	p.span.SetAttributes(
		attribute.String("renderer", name),
		attribute.Int64("width", int64(c.Plane.Cols)),
		attribute.Int64("height", int64(c.Plane.Rows)),
		attribute.Int64("samples", int64(p.samples)),
		attribute.Int64("elements", int64(len(s.Elements()))),
		attribute.Int64("lights", int64(len(s.Lights()))),
	)

	return ctx, p, nil
}

func (p *pass) fail(err error) error {
	p.span.RecordError(err)
	p.span.SetStatus(codes.Error, err.Error())
	p.span.End()
	return err
}

func (p *pass) finish(ctx context.Context) *surface.Surface {
	elapsed := time.Since(p.start)

	err := stats.RecordWithOptions(
		ctx,
		stats.WithTags(tag.Insert(rendererKey, p.name)),
		stats.WithMeasurements(
			pixelsRendered.M(int64(len(p.surface.Pixels))),
			renderLatency.M(float64(elapsed)/float64(time.Millisecond)),
		))
	if err != nil {
		glog.Warningf("Failed to record render metrics: %v", err)
	}

	rendererAttr := attribute.String("renderer", p.name)
	otelPixelsRendered.Add(ctx, int64(len(p.surface.Pixels)), rendererAttr)
	otelRenderLatency.Record(ctx, float64(elapsed)/float64(time.Millisecond), rendererAttr)

	glog.V(1).Infof("%s: rendered %dx%d with %d samples per axis in %v", p.name, p.surface.Width, p.surface.Height, p.samples, elapsed)

	p.span.SetStatus(codes.Ok, "")
	p.span.End()
	return p.surface
}

// shadePixel returns the color of the pixel at (col, row).  With more than one
// sample per axis the pixel is divided into a regular grid and the color at the
// center of every cell is averaged.
func (p *pass) shadePixel(col, row int) (color.T, error) {
	ctx := material.NewContext(p.scene)

	if p.samples == 1 {
		r, err := p.camera.RayThroughPixel(col, row)
		if err != nil {
			return color.T{}, fmt.Errorf("while building primary ray: %w", err)
		}
		return p.scene.Trace(r, ctx), nil
	}

	n := p.samples
	samples := make([]color.T, 0, n*n)
	for i := 0; i < n; i++ {
		y := float64(row) - 0.5 + (float64(i)+0.5)/float64(n)
		for j := 0; j < n; j++ {
			x := float64(col) - 0.5 + (float64(j)+0.5)/float64(n)
			samples = append(samples, p.scene.Trace(p.camera.RayThroughPoint(x, y), ctx))
		}
	}
	return color.Average(samples), nil
}

func (p *pass) renderRow(row int) error {
	if row < 0 || row >= p.surface.Height {
		return fmt.Errorf("row %d is outside the %dx%d surface", row, p.surface.Width, p.surface.Height)
	}

	pixels := p.surface.Row(row)
	for col := range pixels {
		c, err := p.shadePixel(col, row)
		if err != nil {
			return fmt.Errorf("while shading pixel (%d, %d): %w", col, row, err)
		}
		pixels[col] = c
	}

	p.progress.rowDone()
	return nil
}

// Sequential renders rows in order on the calling goroutine.
type Sequential struct {
	name string
	opts Options
}

func (r *Sequential) Render(ctx context.Context, s *scene.Scene, c *camera.Camera) (*surface.Surface, error) {
	ctx, p, err := beginPass(ctx, "Sequential.Render", r.name, s, c, r.opts)
	if err != nil {
		return nil, err
	}

	for row := 0; row < p.surface.Height; row++ {
		if err := ctx.Err(); err != nil {
			return nil, p.fail(fmt.Errorf("while rendering row %d: %w", row, err))
		}
		if err := p.renderRow(row); err != nil {
			return nil, p.fail(err)
		}
	}

	return p.finish(ctx), nil
}

// Parallel renders rows concurrently, at most Options.Workers at a time.
type Parallel struct {
	name string
	opts Options
}

func (r *Parallel) Render(ctx context.Context, s *scene.Scene, c *camera.Camera) (*surface.Surface, error) {
	ctx, p, err := beginPass(ctx, "Parallel.Render", r.name, s, c, r.opts)
	if err != nil {
		return nil, err
	}

	workers := r.opts.workers()
	p.span.SetAttributes(attribute.Int64("workers", int64(workers)))

	// Use errgroup and semaphore to limit concurrency.
	eg, egCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(workers))

	for row := 0; row < p.surface.Height; row++ {
		row := row

		err := egCtx.Err()
		if err == nil {
			err = sem.Acquire(egCtx, 1)
		}
		if err != nil {
			// A failed row cancels egCtx; report that failure rather than the
			// cancellation it caused.
			if rowErr := eg.Wait(); rowErr != nil {
				err = rowErr
			}
			return nil, p.fail(fmt.Errorf("while scheduling row %d: %w", row, err))
		}

		eg.Go(func() error {
			defer sem.Release(1)
			return p.renderRow(row)
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, p.fail(fmt.Errorf("while waiting for completion of errgroup: %w", err))
	}

	return p.finish(ctx), nil
}
