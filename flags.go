package animator

import (
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/flanksource/animator/encoder"
	"github.com/flanksource/animator/recorder"
)

const (
	BackendFrames  = "frames"
	BackendBrowser = "browser"

	FitAuto = "auto"
	FitOn   = "on"
	FitOff  = "off"
)

// Options configures a render. They are read from flags and the YAML config.
type Options struct {
	Input      string          `yaml:"-"`
	OutputDir  string          `yaml:"output,omitempty"`
	Name       string          `yaml:"name,omitempty"`
	Backend    string          `yaml:"backend,omitempty"`
	Width      int             `yaml:"width,omitempty"`
	Height     int             `yaml:"height,omitempty"`
	Padding    float64         `yaml:"padding,omitempty"`
	FPS        int             `yaml:"fps,omitempty"`
	Duration   time.Duration   `yaml:"duration,omitempty"`
	Fit        string          `yaml:"fit,omitempty"`
	Rasterizer string          `yaml:"rasterizer,omitempty"`
	Workers    int             `yaml:"workers,omitempty"`
	KeepFrames bool            `yaml:"keepFrames,omitempty"`
	Headless   bool            `yaml:"headless,omitempty"`
	AnimateURL string          `yaml:"animateURL,omitempty"`
	Port       int             `yaml:"port,omitempty"`
	Encoder    encoder.Options `yaml:"encoder,omitempty"`
	CacheDB    string          `yaml:"cacheDB,omitempty"`
	NoCache    bool            `yaml:"noCache,omitempty"`
	Force      bool            `yaml:"force,omitempty"`
	NoColor    bool            `yaml:"noColor,omitempty"`

	logger.Flags `yaml:"-"`
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		OutputDir:  "output",
		Backend:    BackendFrames,
		Width:      1280,
		Height:     720,
		Padding:    60,
		Fit:        FitAuto,
		Rasterizer: "auto",
		AnimateURL: recorder.DefaultURL,
		Port:       recorder.DefaultPort,
		Encoder: encoder.Options{
			FFmpegPath: encoder.DefaultFFmpeg,
			Codec:      encoder.DefaultCodec,
			PixFmt:     encoder.DefaultPixFmt,
			CRF:        encoder.DefaultCRF,
		},
		Flags: logger.Flags{
			Level:       "info",
			LogToStderr: true,
		},
	}
}

// BindFlags registers the render flags on flags, writing into o
func BindFlags(flags *pflag.FlagSet, o *Options) {
	flags.CountVarP(&o.Flags.LevelCount, "loglevel", "v", "Increase logging level")
	flags.StringVar(&o.Flags.Level, "log-level", o.Flags.Level, "Set the default log level")
	flags.BoolVar(&o.Flags.JsonLogs, "json-logs", false, "Print logs in json format to stderr")
	flags.BoolVar(&o.Flags.ReportCaller, "report-caller", false, "Report log caller info")
	flags.BoolVar(&o.Flags.LogToStderr, "log-to-stderr", true, "Log to stderr instead of stdout")
	flags.BoolVar(&o.NoColor, "no-color", false, "Disable colored output")

	flags.StringVarP(&o.OutputDir, "output", "o", o.OutputDir, "Output directory")
	flags.StringVar(&o.Backend, "backend", o.Backend, "Render backend: frames or browser")
	flags.IntVar(&o.Width, "width", o.Width, "Video width in pixels")
	flags.IntVar(&o.Height, "height", o.Height, "Video height in pixels")
	flags.Float64Var(&o.Padding, "padding", o.Padding, "Padding around the fitted diagram in pixels")
	flags.IntVar(&o.FPS, "fps", o.FPS, "Frames per second (default 30 for frames, 15 for browser)")
	flags.DurationVar(&o.Duration, "duration", o.Duration, "Animation length (default 10s for frames, 15s for browser)")
	flags.StringVar(&o.Fit, "fit", o.Fit, "Fit the diagram to the canvas: auto, on or off")
	flags.StringVar(&o.Rasterizer, "rasterizer", o.Rasterizer, "SVG rasterizer: auto, rsvg, inkscape, playwright or oksvg")
	flags.IntVar(&o.Workers, "workers", o.Workers, "Frames rendered in parallel (0 = number of CPUs)")
	flags.BoolVar(&o.KeepFrames, "keep-frames", o.KeepFrames, "Keep PNG frames after encoding")

	flags.BoolVar(&o.Headless, "headless", o.Headless, "Run the browser headless when recording")
	flags.StringVar(&o.AnimateURL, "animate-url", o.AnimateURL, "excalidraw-animate URL")
	flags.IntVar(&o.Port, "port", o.Port, "Port serving the diagram to the browser (0 = any free port)")

	flags.StringVar(&o.Encoder.FFmpegPath, "ffmpeg", o.Encoder.FFmpegPath, "Path to the ffmpeg binary")
	flags.StringVar(&o.Encoder.Codec, "codec", o.Encoder.Codec, "Video codec")
	flags.IntVar(&o.Encoder.CRF, "crf", o.Encoder.CRF, "Constant rate factor")

	flags.StringVar(&o.CacheDB, "cache-db", o.CacheDB, "Render cache database (default ~/.cache/animator.db)")
	flags.BoolVar(&o.NoCache, "no-cache", o.NoCache, "Disable the render cache")
	flags.BoolVar(&o.Force, "force", o.Force, "Render even if the cache has a result")
}

// WithBackendDefaults fills the clock and fitting defaults of the backend
func (o Options) WithBackendDefaults() Options {
	if o.Backend == "" {
		o.Backend = BackendFrames
	}
	if o.FPS <= 0 {
		o.FPS = 30
		if o.Backend == BackendBrowser {
			o.FPS = recorder.DefaultFPS
		}
	}
	if o.Duration <= 0 {
		o.Duration = 10 * time.Second
		if o.Backend == BackendBrowser {
			o.Duration = recorder.DefaultDuration
		}
	}
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.OutputDir == "" {
		o.OutputDir = "output"
	}
	return o
}

// ShouldFit reports whether the diagram is fitted to the canvas. Fitting is
// on by default for the frames backend and off for the browser backend,
// which lays the diagram out itself.
func (o Options) ShouldFit() bool {
	switch o.Fit {
	case FitOn, "true", "yes":
		return true
	case FitOff, "false", "no":
		return false
	}
	return o.Backend != BackendBrowser
}

func (o Options) String() string {
	data, _ := yaml.Marshal(o)
	return string(data)
}

// UseFlags configures logging
func (o Options) UseFlags() {
	logger.Configure(o.Flags)
	logger.Debugf("Using options:\n%s", o)
}
