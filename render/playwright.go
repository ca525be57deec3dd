package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flanksource/commons/logger"
	"github.com/playwright-community/playwright-go"
)

// Playwright rasterizes by screenshotting a headless chromium page. The
// browser is started on first use and shared; pages are used one at a time.
type Playwright struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
	closed  bool

	install func() error
	run     func() (*playwright.Playwright, error)
	launch  func(*playwright.Playwright) (playwright.Browser, error)
	stop    func(*playwright.Playwright) error
}

func NewPlaywright() *Playwright {
	return &Playwright{
		install: func() error {
			return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
		},
		run: func() (*playwright.Playwright, error) {
			return playwright.Run()
		},
		launch: func(pw *playwright.Playwright) (playwright.Browser, error) {
			return pw.Chromium.Launch()
		},
		stop: func(pw *playwright.Playwright) error {
			return pw.Stop()
		},
	}
}

func (r *Playwright) Name() string {
	return NamePlaywright
}

// IsAvailable reports true; chromium is installed on first use
func (r *Playwright) IsAvailable() bool {
	return true
}

func (r *Playwright) start() error {
	if r.closed {
		return newRasterError(r.Name(), "start", errors.New("rasterizer is closed"))
	}
	if r.browser != nil {
		return nil
	}
	if err := r.install(); err != nil {
		return newRasterError(r.Name(), "install browsers", err)
	}

	pw, err := r.run()
	if err != nil {
		return newRasterError(r.Name(), "start playwright", err)
	}

	browser, err := r.launch(pw)
	if err != nil {
		if stopErr := r.stop(pw); stopErr != nil {
			logger.Debugf("failed to stop playwright: %v", stopErr)
		}
		return newRasterError(r.Name(), "launch browser", err)
	}
	r.pw = pw
	r.browser = browser
	logger.Debugf("Started chromium for rasterizing")
	return nil
}

func (r *Playwright) Rasterize(ctx context.Context, svg []byte, opts RasterOptions) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.start(); err != nil {
		return nil, err
	}

	page, err := r.browser.NewPage()
	if err != nil {
		return nil, newRasterError(r.Name(), "create page", err)
	}
	defer page.Close()

	if opts.Width > 0 && opts.Height > 0 {
		if err := page.SetViewportSize(opts.Width, opts.Height); err != nil {
			return nil, newRasterError(r.Name(), "set viewport", err)
		}
	}

	background := opts.Background
	if background == "" {
		background = "transparent"
	}
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>
        html, body { margin: 0; padding: 0; background: %s; }
        svg { display: block; width: 100vw; height: 100vh; }
    </style>
</head>
<body>
    %s
</body>
</html>`, background, string(svg))

	if err := page.SetContent(html); err != nil {
		return nil, newRasterError(r.Name(), "set content", err)
	}

	data, err := page.Screenshot(playwright.PageScreenshotOptions{
		Type:           playwright.ScreenshotTypePng,
		OmitBackground: playwright.Bool(opts.Background == ""),
	})
	if err != nil {
		return nil, newRasterError(r.Name(), "screenshot PNG", err)
	}
	return data, nil
}

// Close closes the browser and Playwright instance
func (r *Playwright) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			return err
		}
		r.browser = nil
	}

	if r.pw != nil {
		if err := r.stop(r.pw); err != nil {
			return err
		}
		r.pw = nil
	}

	return nil
}
