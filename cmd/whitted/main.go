// whitted renders a YAML scene file to a PNG image.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"whitted/camera"
	"whitted/gcsupload"
	"whitted/rendercache"
	"whitted/renderer"
	"whitted/scene"
	"whitted/scenefile"
	"whitted/surface"

	"cloud.google.com/go/profiler"
	"cloud.google.com/go/storage"
	"contrib.go.opencensus.io/exporter/stackdriver"
	cloudmetrics "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	cloudtrace "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/golang/glog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	googleopt "google.golang.org/api/option"
)

var (
	sceneFile    = flag.String("scene", "", "YAML scene file to render")
	cameraName   = flag.String("camera", "", "Camera to render through.  Defaults to the first camera in the scene file.")
	rendererName = flag.String("renderer", "multi-threaded", "Renderer to use; see --list-renderers")
	samples      = flag.Int("samples", 1, "Antialiasing samples per pixel along each axis")
	workers      = flag.Int("workers", 0, "Rows rendered concurrently by parallel renderers.  0 means one per CPU.")

	output        = flag.String("output", "output.png", "PNG file to write.  Empty to skip.")
	surfaceOutput = flag.String("surface-output", "", "Full-precision surface file to write.  Empty to skip.")
	cacheDir      = flag.String("cache-dir", "", "Directory of the render cache.  Empty disables caching.")
	outputBucket  = flag.String("output-bucket", "", "GCS bucket to upload the PNG to.  Empty to skip.")

	listRenderers = flag.Bool("list-renderers", false, "List the available renderers and exit")

	monitoring           = flag.Bool("monitoring", false, "Enable monitoring?")
	monitoringProject    = flag.String("monitoring-project", "", "Override project used for monitoring integration.  If not specified, the project associated with Application Default Credentials is used.")
	monitoringTraceRatio = flag.Float64("monitoring-trace-ratio", 1, "What ratio of traces should be exported?")
	enableMetrics        = flag.Bool("enable-metrics", false, "Export render metrics to Cloud Monitoring")
	enableProfiling      = flag.Bool("enable-profiling", false, "Run the Cloud Profiler agent")

	cpuprofile = flag.String("cpu-profile", "", "write cpu profile to `file`")
	memprofile = flag.String("mem-profile", "", "write memory profile to `file`")
)

func main() {
	flag.Parse()

	glog.CopyStandardLogTo("INFO")

	glog.Infof("flags:")
	flag.VisitAll(func(f *flag.Flag) {
		glog.Infof("%s: %q", f.Name, f.Value.String())
	})

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			glog.Exitf("Could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			glog.Exitf("Could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := do(ctx); err != nil {
		pprof.StopCPUProfile()
		glog.Exitf("Error: %v", err)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			glog.Exitf("Could not create memory profile: %v", err)
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			glog.Exitf("Could not write memory profile: %v", err)
		}
	}

	glog.Flush()
}

func do(ctx context.Context) error {
	if *listRenderers {
		for _, name := range renderer.Names() {
			fmt.Println(name)
		}
		return nil
	}

	if *sceneFile == "" {
		return fmt.Errorf("--scene is required")
	}

	if *enableProfiling {
		if err := profiler.Start(profiler.Config{
			Service:        "whitted",
			ServiceVersion: "0.0.1",
		}); err != nil {
			return fmt.Errorf("while initializing profiler: %w", err)
		}
	}

	if *monitoring {
		metricsOpts := []cloudmetrics.Option{}
		traceOpts := []cloudtrace.Option{}
		if *monitoringProject != "" {
			metricsOpts = append(metricsOpts, cloudmetrics.WithProjectID(*monitoringProject))
			traceOpts = append(traceOpts, cloudtrace.WithProjectID(*monitoringProject))
		}

		_, traceShutdown, err := cloudtrace.InstallNewPipeline(traceOpts, sdktrace.WithSampler(sdktrace.TraceIDRatioBased(*monitoringTraceRatio)))
		if err != nil {
			return fmt.Errorf("while installing Cloud Trace OpenTelemetry trace pipeline: %w", err)
		}
		defer traceShutdown()

		pusher, err := cloudmetrics.InstallNewPipeline(metricsOpts)
		if err != nil {
			return fmt.Errorf("while installing Cloud Metrics OpenTelemetry meter pipeline: %w", err)
		}
		defer pusher.Stop(ctx)
	}

	if *enableMetrics {
		exporter, err := stackdriver.NewExporter(stackdriver.Options{
			ProjectID:         *monitoringProject,
			MetricPrefix:      "whitted",
			ReportingInterval: 60 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("while initializing metrics exporter: %w", err)
		}
		if err := exporter.StartMetricsExporter(); err != nil {
			return fmt.Errorf("while starting metrics exporter: %w", err)
		}
		defer exporter.Flush()
		defer exporter.StopMetricsExporter()

		if err := renderer.RegisterMetrics(); err != nil {
			return fmt.Errorf("while registering renderer metrics: %w", err)
		}
	}

	sceneData, err := os.ReadFile(*sceneFile)
	if err != nil {
		return fmt.Errorf("while reading scene file: %w", err)
	}

	sc, err := scenefile.Parse(ctx, sceneData)
	if err != nil {
		return fmt.Errorf("while loading scene %s: %w", *sceneFile, err)
	}

	camName, cam, err := pickCamera(sc, *cameraName)
	if err != nil {
		return err
	}
	glog.V(1).Infof("Camera %q at %v: right %v, up %v, eye %v", camName, cam.Position, cam.Right(), cam.Up(), cam.Eye())

	r, err := renderer.New(*rendererName, renderer.Options{
		Samples: *samples,
		Workers: *workers,
	})
	if err != nil {
		return fmt.Errorf("while creating renderer: %w", err)
	}

	surf, err := render(ctx, r, sc, cam, rendercache.SurfaceKey(sceneData, camName, *rendererName, *samples))
	if err != nil {
		return err
	}

	if *output != "" {
		if err := surface.WritePNGToFile(surf, *output); err != nil {
			return fmt.Errorf("while writing %s: %w", *output, err)
		}
		glog.Infof("Wrote %s", *output)
	}

	if *surfaceOutput != "" {
		if err := writeSurfaceFile(surf, *surfaceOutput); err != nil {
			return fmt.Errorf("while writing %s: %w", *surfaceOutput, err)
		}
		glog.Infof("Wrote %s", *surfaceOutput)
	}

	if *outputBucket != "" {
		if err := upload(ctx, surf, camName); err != nil {
			return fmt.Errorf("while uploading to bucket %s: %w", *outputBucket, err)
		}
	}

	return nil
}

func pickCamera(sc *scene.Scene, name string) (string, *camera.Camera, error) {
	if name == "" {
		cam, ok := sc.DefaultCamera()
		if !ok {
			return "", nil, fmt.Errorf("scene has no cameras")
		}
		return sc.CameraNames()[0], cam, nil
	}

	cam, ok := sc.Camera(name)
	if !ok {
		return "", nil, fmt.Errorf("scene has no camera %q (have %v)", name, sc.CameraNames())
	}
	return name, cam, nil
}

// render returns the surface for key from the cache when one is configured,
// rendering and storing it on a miss.
func render(ctx context.Context, r renderer.Renderer, sc *scene.Scene, cam *camera.Camera, key []byte) (*surface.Surface, error) {
	if *cacheDir == "" {
		surf, err := r.Render(ctx, sc, cam)
		if err != nil {
			return nil, fmt.Errorf("while rendering: %w", err)
		}
		return surf, nil
	}

	cache, err := rendercache.Open(*cacheDir)
	if err != nil {
		return nil, fmt.Errorf("while opening render cache: %w", err)
	}
	defer func() {
		if err := cache.Close(); err != nil {
			glog.Errorf("Error while closing render cache: %v", err)
		}
	}()

	surf, err := cache.Get(key)
	if err == nil {
		glog.Infof("Using cached render")
		return surf, nil
	}
	if !errors.Is(err, rendercache.ErrNotFound) {
		glog.Warningf("Ignoring unreadable cache entry: %+v", err)
	}

	surf, err = r.Render(ctx, sc, cam)
	if err != nil {
		return nil, fmt.Errorf("while rendering: %w", err)
	}

	if err := cache.Put(key, surf); err != nil {
		glog.Warningf("Failed to cache render: %+v", err)
	}
	return surf, nil
}

func writeSurfaceFile(surf *surface.Surface, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("while creating file: %w", err)
	}

	if err := surface.Write(surf, f); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing file: %w", err)
	}
	return nil
}

func upload(ctx context.Context, surf *surface.Surface, camName string) error {
	gcs, err := storage.NewClient(ctx, googleopt.WithGRPCConnectionPool(1))
	if err != nil {
		return fmt.Errorf("while creating GCS client: %w", err)
	}
	defer gcs.Close()

	buf := &bytes.Buffer{}
	if err := surface.WritePNG(surf, buf); err != nil {
		return err
	}

	object := gcsupload.ObjectName(*sceneFile, camName, "png")
	if _, err := gcsupload.New(gcs, *outputBucket).Upload(ctx, object, "image/png", buf.Bytes()); err != nil {
		return err
	}
	return nil
}
