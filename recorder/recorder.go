// Package recorder records a diagram animation by driving the
// excalidraw-animate web app in chromium and screenshotting the page.
package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/playwright-community/playwright-go"

	"github.com/flanksource/animator/shutdown"
)

const (
	DefaultURL      = "https://dai-shi.github.io/excalidraw-animate/"
	DefaultWidth    = 1280
	DefaultHeight   = 720
	DefaultFPS      = 15
	DefaultDuration = 15 * time.Second
	DefaultPattern  = "frame-%05d.png"

	buttonTimeout = 10 * time.Second
	appSettle     = time.Second
	inputSettle   = 500 * time.Millisecond
	animateSettle = 2 * time.Second
)

// Recorder captures the animation of a diagram from excalidraw-animate
type Recorder struct {
	URL      string
	Width    int
	Height   int
	FPS      int
	Duration time.Duration
	Headless bool
	Port     int
	Dir      string
	Pattern  string
	// OnProgress is called after each captured frame
	OnProgress func(done, total int)
}

// Recording describes the frames written by Record
type Recording struct {
	Frames  int
	Dir     string
	Elapsed time.Duration
}

// New returns a recorder with the default settings writing frames to dir
func New(dir string) *Recorder {
	return &Recorder{
		URL:      DefaultURL,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
		FPS:      DefaultFPS,
		Duration: DefaultDuration,
		Port:     DefaultPort,
		Dir:      dir,
		Pattern:  DefaultPattern,
	}
}

func (r *Recorder) withDefaults() Recorder {
	c := *r
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
	return c
}

// LaunchArgs are the chromium flags used for recording
func (r *Recorder) LaunchArgs() []string {
	c := r.withDefaults()
	return []string{
		fmt.Sprintf("--window-size=%d,%d", c.Width, c.Height),
		"--disable-web-security",
		"--allow-file-access-from-files",
	}
}

// Path returns the file frame is written to
func (r *Recorder) Path(frame int) string {
	c := r.withDefaults()
	return filepath.Join(c.Dir, fmt.Sprintf(c.Pattern, frame))
}

// releaseOnce registers release as a shutdown hook and returns a func that
// unregisters it and releases. release runs at most once across both paths.
func releaseOnce(label string, priority int, release func()) func() {
	release = sync.OnceFunc(release)
	remove := shutdown.AddHookWithPriority(label, priority, release)
	return func() {
		remove()
		release()
	}
}

// Record loads diagram into excalidraw-animate, starts the animation and
// captures FPS*Duration screenshots into Dir
func (r *Recorder) Record(ctx context.Context, diagram []byte) (*Recording, error) {
	c := r.withDefaults()
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}

	server := NewServer(diagram, c.Port)
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer releaseOnce("diagram server", shutdown.PriorityServer, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("failed to stop diagram server: %v", err)
		}
	})()
	logger.Infof("Started local server on port %d", server.Port)

	logger.Infof("Launching browser...")
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return nil, fmt.Errorf("failed to install chromium: %w", err)
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(c.Headless),
		Args:     c.LaunchArgs(),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}
	defer releaseOnce("chromium", shutdown.PriorityBrowser, func() {
		if err := browser.Close(); err != nil {
			logger.Debugf("failed to close browser: %v", err)
		}
		if err := pw.Stop(); err != nil {
			logger.Debugf("failed to stop playwright: %v", err)
		}
	})()

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: c.Width, Height: c.Height},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := c.prepare(ctx, page, server.URL()); err != nil {
		return nil, err
	}

	total, interval := CaptureSchedule(c.FPS, c.Duration)
	logger.Infof("Recording for %s (%d frames at %d fps)...", c.Duration, total, c.FPS)
	start := time.Now()
	frames, err := capture(ctx, total, interval,
		func() ([]byte, error) {
			return page.Screenshot(playwright.PageScreenshotOptions{Type: playwright.ScreenshotTypePng})
		},
		func(frame int, png []byte) error {
			if err := os.WriteFile(c.Path(frame), png, 0o644); err != nil {
				return fmt.Errorf("failed to write frame %d: %w", frame, err)
			}
			if c.OnProgress != nil {
				c.OnProgress(frame+1, total)
			}
			if frame%c.FPS == 0 {
				logger.Debugf("%ds...", frame/c.FPS)
			}
			return nil
		})
	recording := &Recording{Frames: frames, Dir: c.Dir, Elapsed: time.Since(start)}
	if err != nil {
		return recording, fmt.Errorf("recording stopped after %d frames: %w", frames, err)
	}
	logger.Infof("Captured %d frames in %s", frames, recording.Elapsed.Round(time.Millisecond))
	return recording, nil
}

// prepare loads the app, enters the diagram URL and starts the animation
func (r Recorder) prepare(ctx context.Context, page playwright.Page, diagramURL string) error {
	logger.Infof("Loading %s...", r.URL)
	if _, err := page.Goto(r.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("failed to load %s: %w", r.URL, err)
	}
	if _, err := page.WaitForSelector("button", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(buttonTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("excalidraw-animate did not load: %w", err)
	}
	if err := sleep(ctx, appSettle); err != nil {
		return err
	}

	logger.Infof("Loading diagram...")
	input, err := page.QuerySelector(`input[type="text"]`)
	if err != nil || input == nil {
		logger.Warnf("No URL input found")
	} else if err := input.Type(diagramURL); err != nil {
		logger.Warnf("Failed to enter diagram URL: %v", err)
	} else {
		logger.Debugf("Entered %s", diagramURL)
		if err := sleep(ctx, inputSettle); err != nil {
			return err
		}
	}

	logger.Infof("Starting animation...")
	clicked, err := page.Evaluate(`() => {
		for (const btn of document.querySelectorAll('button')) {
			if (btn.textContent && btn.textContent.includes('Animate')) {
				btn.click();
				return true;
			}
		}
		return false;
	}`)
	if err != nil {
		return fmt.Errorf("failed to start the animation: %w", err)
	}
	if ok, _ := clicked.(bool); !ok {
		logger.Warnf("Could not find Animate button")
		if texts, err := page.Evaluate(`() => Array.from(document.querySelectorAll('button')).map(b => b.textContent)`); err == nil {
			logger.Warnf("Available buttons: %v", texts)
		}
	}

	return sleep(ctx, animateSettle)
}
