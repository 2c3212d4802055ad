/*
Example parking monitor that counts the cars inside a parking area of a
video.  Annotated frames are shown in a window, recorded to a video file and
optionally streamed to web browsers as MJPEG.

	go run parking.go run --config parking.json
	go run parking.go pick --source videos/parking.mp4
*/
package main

import (
	"context"
	"github.com/pkg/errors"
	"github.com/swdee/go-parkcount"
	"github.com/swdee/go-parkcount/detect"
	"github.com/swdee/go-parkcount/metrics"
	"github.com/swdee/go-parkcount/roi"
	"github.com/swdee/go-parkcount/stream"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	flagConfig    = "config"
	flagSource    = "source"
	flagModel     = "model"
	flagBackend   = "backend"
	flagLabels    = "labels"
	flagOutput    = "output"
	flagNoWindow  = "no-window"
	flagHTTP      = "http"
	flagMetrics   = "metrics"
	flagMaxFrames = "max-frames"
	flagLogLevel  = "log-level"
	flagPlatform  = "platform"
	flagCores     = "cores"

	// shutdownTimeout is how long HTTP servers get to finish on exit
	shutdownTimeout = 5 * time.Second
)

func main() {

	app := &cli.App{
		Name:   "parking",
		Usage:  "count the cars parked inside an area of a video",
		Flags:  runFlags(),
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the parking monitor (default)",
				Flags:  runFlags(),
				Action: runAction,
			},
			{
				Name:   "pick",
				Usage:  "select the parking area on the first frame and print it as config",
				Flags:  pickFlags(),
				Action: pickAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		exitError(err)
	}
}

// exitError logs a failed run through a console logger and exits non zero
func exitError(err error) {

	logger, lerr := parkcount.NewLogger("error")

	if lerr != nil {
		logger = zap.NewExample()
	}

	logger.Error("parking failed", zap.Error(err))
	logger.Sync()

	os.Exit(1)
}

// configFlag is shared by all commands
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"c"},
		Usage:   "load configuration from `FILE`, defaults are used when not given",
	}
}

// runFlags returns the flags of the run command, each overrides the matching
// config file value when set
func runFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		&cli.StringFlag{
			Name:  flagSource,
			Usage: "video file, capture device index, stream URL or image directory",
		},
		&cli.StringFlag{
			Name:  flagModel,
			Usage: "YOLOv5 ONNX model `FILE`",
		},
		&cli.StringFlag{
			Name:  flagBackend,
			Usage: "detector backend, rknn for the NPU or an OpenCV DNN backend name",
		},
		&cli.StringFlag{
			Name:  flagLabels,
			Usage: "labels text `FILE`, one label per line",
		},
		&cli.StringFlag{
			Name:  flagOutput,
			Usage: "output video `FILE`, empty disables recording",
		},
		&cli.BoolFlag{
			Name:  flagNoWindow,
			Usage: "do not show the display window",
		},
		&cli.StringFlag{
			Name:  flagHTTP,
			Usage: "listen `ADDR` of the MJPEG stream server, eg: :8080",
		},
		&cli.StringFlag{
			Name:  flagMetrics,
			Usage: "listen `ADDR` of the Prometheus metrics server, eg: :9090",
		},
		&cli.IntFlag{
			Name:  flagMaxFrames,
			Usage: "stop after this many frames, 0 is unlimited",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "log level debug|info|warn|error",
		},
		&cli.StringFlag{
			Name:  flagPlatform,
			Usage: "pin to the CPU cores of the Rockchip platform rk3562|rk3566|rk3568|rk3576|rk3582|rk3588",
		},
		&cli.StringFlag{
			Name:  flagCores,
			Value: "fast",
			Usage: "core type used with --platform, fast|slow|all",
		},
	}
}

// loadConfig reads the config file if given and applies the command line
// overrides
func loadConfig(c *cli.Context) (parkcount.Config, error) {

	cfg := parkcount.DefaultConfig()

	if file := c.String(flagConfig); file != "" {
		var err error
		cfg, err = parkcount.LoadConfig(file)

		if err != nil {
			return cfg, err
		}
	}

	if c.IsSet(flagSource) {
		cfg.Source = c.String(flagSource)
	}

	if c.IsSet(flagModel) {
		cfg.Detector.Model = c.String(flagModel)
	}

	if c.IsSet(flagBackend) {
		cfg.Detector.Backend = c.String(flagBackend)
	}

	if c.IsSet(flagLabels) {
		cfg.Detector.Labels = c.String(flagLabels)
	}

	if c.IsSet(flagOutput) {
		cfg.Output.Video = c.String(flagOutput)
	}

	if c.Bool(flagNoWindow) {
		cfg.Output.Window = ""
	}

	if c.IsSet(flagHTTP) {
		cfg.Output.HTTPAddr = c.String(flagHTTP)
	}

	if c.IsSet(flagMetrics) {
		cfg.Output.MetricsAddr = c.String(flagMetrics)
	}

	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}

	if platform := c.String(flagPlatform); platform != "" {
		ct, err := parkcount.ParseCoreType(c.String(flagCores))

		if err != nil {
			return cfg, err
		}

		cfg.CPUCores, err = parkcount.PlatformCores(platform, ct)

		if err != nil {
			return cfg, err
		}
	}

	return cfg, cfg.Validate()
}

// openSource opens a directory as an image sequence and anything else as a
// video
func openSource(uri string, fps float64) (stream.Source, error) {

	if info, err := os.Stat(uri); err == nil && info.IsDir() {
		return stream.OpenImageSequence(uri, fps)
	}

	return stream.OpenVideo(uri)
}

// server is an HTTP server run alongside the stream driver
type server struct {
	name string
	srv  *http.Server
}

func runAction(c *cli.Context) error {

	cfg, err := loadConfig(c)

	if err != nil {
		return err
	}

	logger, err := parkcount.NewLogger(cfg.LogLevel)

	if err != nil {
		return err
	}

	defer logger.Sync()

	if err := parkcount.SetCPUAffinity(cfg.CPUCores); err != nil {
		logger.Warn("could not set CPU affinity", zap.Error(err))
	} else if len(cfg.CPUCores) > 0 {
		logger.Info("pinned to CPU cores", zap.Ints("cores", cfg.CPUCores))
	}

	area, err := cfg.ROI()

	if err != nil {
		return err
	}

	logger.Info("monitoring area",
		zap.Any("points", area.BoundaryPoints()),
		zap.Stringer("bounds", area.Bounds()),
		zap.Float64("area", roi.Area(area.BoundaryPoints())),
		zap.Strings("targets", cfg.TargetClasses()),
	)

	labels, err := detect.LoadLabels(cfg.Detector.Labels)

	if err != nil {
		return err
	}

	det, err := cfg.NewDetector(labels, logger.Named("detect"))

	if err != nil {
		return err
	}

	defer det.Close()

	src, err := openSource(cfg.Source, cfg.Output.FPS)

	if err != nil {
		return err
	}

	defer src.Close()

	var sinks stream.MultiSink

	defer func() {
		if err := sinks.Close(); err != nil {
			logger.Warn("error closing outputs", zap.Error(err))
		}
	}()

	if cfg.Output.Window != "" {
		sinks = append(sinks, stream.NewWindowSink(cfg.Output.Window))
	}

	if cfg.Output.Video != "" {
		vs, err := stream.NewVideoSink(cfg.Output.Video, cfg.Output.Codec,
			cfg.Output.FPS, cfg.FrameSize())

		if err != nil {
			return err
		}

		sinks = append(sinks, vs)
	}

	opts := []stream.Option{
		stream.WithFrameSize(cfg.FrameSize()),
		stream.WithLogger(logger.Named("stream")),
		stream.WithMaxFrames(c.Int(flagMaxFrames)),
		stream.WithLogEvery(100),
	}

	var servers []server
	var bc *stream.Broadcaster
	var m *metrics.Metrics

	if cfg.Output.MetricsAddr != "" {
		m = metrics.New()
		opts = append(opts, stream.WithMetrics(m))

		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())

		servers = append(servers, server{"metrics",
			&http.Server{Addr: cfg.Output.MetricsAddr, Handler: mux}})
	}

	if cfg.Output.HTTPAddr != "" {
		bc = stream.NewBroadcaster(80, logger.Named("mjpeg"))

		if m != nil {
			bc.OnClientsChanged(func(n int) {
				m.StreamClients.Set(float64(n))
			})
		}

		sinks = append(sinks, bc)

		mux := http.NewServeMux()
		mux.Handle("/stream", bc)

		servers = append(servers, server{"stream",
			&http.Server{Addr: cfg.Output.HTTPAddr, Handler: mux}})
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	for _, s := range servers {
		s := s
		g.Go(func() error {
			logger.Info("http server listening", zap.String("server", s.name),
				zap.String("addr", s.srv.Addr))

			if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrapf(err, "%s server", s.name)
			}

			return nil
		})
	}

	driver := stream.NewDriver(src, det, area, cfg.TargetClasses(), sinks, opts...)

	// the driver stays on this goroutine as the display window must be
	// driven from the thread that created it
	sum, runErr := driver.Run(gctx)

	// closing the broadcaster ends the MJPEG responses so shutdown does
	// not wait on them
	if bc != nil {
		bc.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, s := range servers {
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown", zap.String("server", s.name), zap.Error(err))
		}
	}

	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}

	logger.Info("parking summary",
		zap.String("reason", sum.Reason),
		zap.Int("frames", sum.Frames),
		zap.Int("min_cars", sum.MinCount),
		zap.Int("max_cars", sum.MaxCount),
		zap.Float64("mean_cars", sum.MeanCount),
	)

	return runErr
}
