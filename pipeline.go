// Package animator turns Excalidraw diagrams and scene timelines into MP4
// videos.
package animator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/flanksource/animator/animation"
	"github.com/flanksource/animator/cache"
	"github.com/flanksource/animator/encoder"
	"github.com/flanksource/animator/excalidraw"
	"github.com/flanksource/animator/geometry"
	"github.com/flanksource/animator/recorder"
	"github.com/flanksource/animator/render"
	"github.com/flanksource/animator/shutdown"
	"github.com/flanksource/animator/timeline"
)

// Result describes a finished render
type Result struct {
	RunID         string
	Output        string
	FramesDir     string
	Frames        int
	Encoded       bool
	Cached        bool
	ManualCommand string
	Size          int64
	Transform     *geometry.FitTransform
	Elapsed       time.Duration
}

// Pipeline renders inputs to video
type Pipeline struct {
	Console     *Console
	Rasterizers *render.Manager
}

// NewPipeline returns a pipeline printing to console
func NewPipeline(console *Console) *Pipeline {
	return &Pipeline{Console: console}
}

func (p *Pipeline) console() *Console {
	if p.Console == nil {
		p.Console = NewConsoleWriter(io.Discard, false, true)
	}
	return p.Console
}

// Close releases the rasterizers
func (p *Pipeline) Close() error {
	if p.Rasterizers == nil {
		return nil
	}
	return p.Rasterizers.Close()
}

// job is one input on its way to a video
type job struct {
	name   string
	input  string
	data   []byte
	opts   Options
	frames func(ctx context.Context, dir string, onProgress func(done, total int)) (int, error)
}

// NotFoundError is returned for missing input files
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "file not found: " + e.Path
}

// ReadInput reads an input file, reporting a missing file as *NotFoundError
func ReadInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &NotFoundError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// nameOf is the output name of input: the file name without its extension
func nameOf(input string) string {
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
}

// Fingerprint identifies the settings that change the rendered video
func (o Options) Fingerprint() string {
	enc := o.Encoder.WithDefaults()
	parts := []string{
		o.Backend,
		fmt.Sprintf("%dx%d", o.Width, o.Height),
		fmt.Sprintf("fps=%d", o.FPS),
		fmt.Sprintf("duration=%s", o.Duration),
		fmt.Sprintf("fit=%t", o.ShouldFit()),
		fmt.Sprintf("padding=%g", o.Padding),
		fmt.Sprintf("codec=%s/%s/crf%d", enc.Codec, enc.PixFmt, enc.CRF),
	}
	if o.Backend == BackendBrowser {
		parts = append(parts, o.AnimateURL)
	}
	return strings.Join(parts, "|")
}

// FitDiagram applies the fitting options to d, returning the diagram to render and
// the transform used, if any
func (o Options) FitDiagram(d *excalidraw.Diagram) (*excalidraw.Diagram, *geometry.FitTransform, error) {
	if !o.ShouldFit() || len(d.Elements) == 0 {
		return d, nil, nil
	}
	fitted, t, err := d.FitToCanvas(float64(o.Width), float64(o.Height), o.Padding)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit diagram: %w", err)
	}
	return fitted, &t, nil
}

// rasterizers returns the manager honouring the preferred rasterizer
func (p *Pipeline) rasterizers(opts Options) (*render.Manager, error) {
	if p.Rasterizers == nil {
		p.Rasterizers = render.NewManager()
	}
	if err := p.Rasterizers.SetPreferred(opts.Rasterizer); err != nil {
		return nil, err
	}
	if p.Rasterizers.Name() == render.NameOKSVG {
		p.console().Warn("Rasterizing with oksvg, which does not draw text; install rsvg-convert for labels")
	}
	return p.Rasterizers, nil
}

// Source loads the frame source described by opts.Input: a scene timeline
// (builtin name or .yaml file) or an .excalidraw diagram
func (p *Pipeline) Source(opts Options) (animation.FrameSource, *geometry.FitTransform, error) {
	opts = opts.WithBackendDefaults()
	if IsScene(opts.Input) {
		tl, err := LoadScene(opts.Input)
		if err != nil {
			return nil, nil, err
		}
		return animation.NewSceneAnimation(tl), nil, nil
	}

	data, err := ReadInput(opts.Input)
	if err != nil {
		return nil, nil, err
	}
	d, err := excalidraw.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	fitted, t, err := opts.FitDiagram(d)
	if err != nil {
		return nil, nil, err
	}
	return diagramAnimation(fitted, opts), t, nil
}

func diagramAnimation(d *excalidraw.Diagram, opts Options) *animation.DiagramAnimation {
	a := animation.NewDiagramAnimation(d)
	a.Rate = opts.FPS
	a.Duration = opts.Duration
	a.Width = opts.Width
	a.Height = opts.Height
	return a
}

// IsScene reports whether input names a scene timeline rather than a diagram
func IsScene(input string) bool {
	switch strings.ToLower(filepath.Ext(input)) {
	case ".yaml", ".yml":
		return true
	case "":
		_, err := timeline.Builtin(input)
		return err == nil
	}
	return false
}

// LoadScene loads a builtin scene by name or a timeline file
func LoadScene(nameOrPath string) (*timeline.SceneTimeline, error) {
	if tl, err := timeline.Builtin(nameOrPath); err == nil {
		return tl, nil
	}
	if _, err := os.Stat(nameOrPath); errors.Is(err, os.ErrNotExist) {
		if filepath.Ext(nameOrPath) == "" {
			return nil, fmt.Errorf("%w: %s (available: %s)", timeline.ErrUnknownScene, nameOrPath, strings.Join(timeline.BuiltinNames(), ", "))
		}
		return nil, &NotFoundError{Path: nameOrPath}
	}
	return timeline.LoadTimeline(nameOrPath)
}

// RenderDiagram renders an .excalidraw file to video
func (p *Pipeline) RenderDiagram(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.WithBackendDefaults()
	data, err := ReadInput(opts.Input)
	if err != nil {
		return nil, err
	}
	d, err := excalidraw.Parse(data)
	if err != nil {
		return nil, err
	}

	j := &job{name: opts.Name, input: opts.Input, data: data, opts: opts}
	if j.name == "" {
		j.name = nameOf(opts.Input)
	}

	var transform *geometry.FitTransform
	switch opts.Backend {
	case BackendFrames:
		j.frames = func(ctx context.Context, dir string, onProgress func(int, int)) (int, error) {
			fitted, t, err := opts.FitDiagram(d)
			if err != nil {
				return 0, err
			}
			if t != nil {
				transform = t
				logger.Infof("%s", t)
			}
			return p.writeFrames(ctx, diagramAnimation(fitted, opts), dir, opts, onProgress)
		}

	case BackendBrowser:
		j.frames = func(ctx context.Context, dir string, onProgress func(int, int)) (int, error) {
			payload := data
			fitted, t, err := opts.FitDiagram(d)
			if err != nil {
				return 0, err
			}
			if t != nil {
				transform = t
				logger.Infof("%s", t)
				if payload, err = fitted.Marshal(); err != nil {
					return 0, err
				}
			}
			rec := recorder.New(dir)
			rec.URL = opts.AnimateURL
			rec.Width, rec.Height = opts.Width, opts.Height
			rec.FPS = opts.FPS
			rec.Duration = opts.Duration
			rec.Headless = opts.Headless
			rec.Port = opts.Port
			rec.OnProgress = onProgress
			recording, err := rec.Record(ctx, payload)
			if recording == nil {
				return 0, err
			}
			return recording.Frames, err
		}

	default:
		return nil, fmt.Errorf("unknown backend %q (expected %s or %s)", opts.Backend, BackendFrames, BackendBrowser)
	}

	p.console().Header("Excalidraw Animation")
	p.console().Field("Input", opts.Input)
	p.console().Field("Elements", len(d.Elements))
	p.console().Field("Backend", opts.Backend)
	p.console().Field("Duration", opts.Duration)
	p.console().Field("FPS", opts.FPS)

	result, err := p.run(ctx, j)
	if result != nil {
		result.Transform = transform
	}
	return result, err
}

// RenderScene renders a scene timeline to video
func (p *Pipeline) RenderScene(ctx context.Context, tl *timeline.SceneTimeline, opts Options) (*Result, error) {
	tl.ApplyDefaults()
	if err := tl.Validate(); err != nil {
		return nil, err
	}
	opts.Backend = BackendFrames
	opts.FPS = tl.FPS
	opts.Duration = time.Duration(tl.Duration * float64(time.Second))
	opts.Width, opts.Height = tl.Width, tl.Height
	opts = opts.WithBackendDefaults()

	data, err := yaml.Marshal(tl)
	if err != nil {
		return nil, fmt.Errorf("failed to encode timeline: %w", err)
	}
	j := &job{name: opts.Name, input: opts.Input, data: data, opts: opts}
	if j.name == "" {
		j.name = tl.Name
	}
	if j.input == "" {
		j.input = tl.Name
	}
	source := animation.NewSceneAnimation(tl)
	j.frames = func(ctx context.Context, dir string, onProgress func(int, int)) (int, error) {
		return p.writeFrames(ctx, source, dir, opts, onProgress)
	}

	p.console().Header(lo.CoalesceOrEmpty(tl.Title, tl.Name))
	p.console().Field("Scene", tl.Name)
	p.console().Field("Cues", tl.Summary())
	p.console().Field("Duration", opts.Duration)
	p.console().Field("FPS", opts.FPS)
	return p.run(ctx, j)
}

func (p *Pipeline) writeFrames(ctx context.Context, source animation.FrameSource, dir string, opts Options, onProgress func(int, int)) (int, error) {
	rasterizer, err := p.rasterizers(opts)
	if err != nil {
		return 0, err
	}
	w := &render.FrameWriter{
		Source:     source,
		Rasterizer: rasterizer,
		Dir:        dir,
		Workers:    opts.Workers,
		Pattern:    render.DefaultPattern,
		OnProgress: onProgress,
	}
	return w.Write(ctx)
}

func (p *Pipeline) run(ctx context.Context, j *job) (*Result, error) {
	start := time.Now()
	opts := j.opts
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	result := &Result{
		RunID:     uuid.NewString(),
		Output:    filepath.Join(opts.OutputDir, j.name+".mp4"),
		FramesDir: filepath.Join(opts.OutputDir, j.name+"-frames"),
	}
	p.console().Field("Output", result.Output)

	lock := flock.New(result.Output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", result.Output, err)
	}
	if !locked {
		return nil, fmt.Errorf("another render is writing %s", result.Output)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	key := cache.Key(j.data, opts.Fingerprint())
	renders := p.openCache(opts)
	if renders != nil {
		defer renders.Close()
		if !opts.Force {
			if entry, err := renders.Get(key); err == nil && entry.Output == result.Output {
				p.console().Success("Up to date: %s (rendered %s)", entry.Output, entry.CreatedAt.Local().Format(time.DateTime))
				result.Cached = true
				result.Encoded = true
				result.Frames = entry.Frames
				result.Size = entry.SizeBytes
				result.Elapsed = time.Since(start)
				return result, nil
			}
		}
	}

	p.console().Step("Rendering frames...")
	if err := os.RemoveAll(result.FramesDir); err != nil {
		return result, fmt.Errorf("failed to clear stale frames: %w", err)
	}
	removeFramesHook := shutdown.AddHookWithPriority("remove partial frames", shutdown.PriorityFrames, func() {
		_ = os.RemoveAll(result.FramesDir)
	})
	frames, err := j.frames(ctx, result.FramesDir, func(done, total int) {
		p.console().Progress("frames", done, total)
	})
	removeFramesHook()
	result.Frames = frames
	if err != nil {
		return result, fmt.Errorf("failed to render frames: %w", err)
	}
	p.console().Success("Saved %d frames to %s", frames, result.FramesDir)

	p.console().Step("Converting to video with ffmpeg...")
	enc := opts.Encoder
	enc.FPS = opts.FPS
	enc.Pattern = render.DefaultPattern
	total := frames
	err = enc.Encode(ctx, result.FramesDir, result.Output, func(pr encoder.Progress) {
		if pr.Done {
			p.console().Progress("encode", total, total)
		} else {
			p.console().Progress("encode", min(pr.Frame, total), total)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			return result, err
		}
		var encErr *encoder.EncodeError
		if errors.As(err, &encErr) {
			result.ManualCommand = encErr.ManualCommand
		}
		logger.Debugf("%v", err)
		p.console().Warn("ffmpeg failed. Frames saved in: %s", result.FramesDir)
		p.console().Muted("Run manually:")
		p.console().Muted("%s", result.ManualCommand)
		result.Elapsed = time.Since(start)
		return result, nil
	}
	result.Encoded = true
	if info, err := os.Stat(result.Output); err == nil {
		result.Size = info.Size()
	}
	p.console().Success("Video saved: %s (%s)", result.Output, Size(result.Size))

	if !opts.KeepFrames {
		if err := encoder.CleanupFrames(result.FramesDir); err != nil {
			p.console().Warn("%v", err)
		} else {
			p.console().Success("Cleaned up frames")
		}
	}

	result.Elapsed = time.Since(start)
	if renders != nil {
		if err := renders.Set(&cache.Entry{
			Key:        key,
			RunID:      result.RunID,
			Input:      j.input,
			Output:     result.Output,
			Backend:    opts.Backend,
			Frames:     frames,
			FPS:        opts.FPS,
			DurationMS: result.Elapsed.Milliseconds(),
			SizeBytes:  result.Size,
		}); err != nil {
			logger.Warnf("failed to record render: %v", err)
		}
	}
	return result, nil
}

// openCache returns the render cache, or nil when it is disabled or unusable
func (p *Pipeline) openCache(opts Options) *cache.Cache {
	if opts.NoCache {
		return nil
	}
	c, err := cache.New(cache.Config{DBPath: opts.CacheDB})
	if err != nil {
		logger.Warnf("render cache unavailable: %v", err)
		return nil
	}
	return c
}
