package recorder

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/animator/shutdown"
)

const diagram = `{"type":"excalidraw","elements":[]}`

func TestServerHandler(t *testing.T) {
	h := NewServer([]byte(diagram), 0).Handler()

	for _, path := range []string{"/file.excalidraw", "/"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, diagram, rec.Body.String())
		})
	}

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/file.excalidraw", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "GET")
	})

	t.Run("head", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/file.excalidraw", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/file.excalidraw", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestServerLifecycle(t *testing.T) {
	defer leaktest.Check(t)()

	s := NewServer([]byte(diagram), 0)
	require.NoError(t, s.Start())
	assert.NotZero(t, s.Port)
	assert.Contains(t, s.URL(), "/file.excalidraw")
	assert.Error(t, s.Start(), "a server starts once")

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get(s.URL())
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, diagram, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, s.Shutdown(ctx), "shutdown is idempotent")
}

func TestReleaseOnce(t *testing.T) {
	var calls atomic.Int32
	release := releaseOnce("test resource", shutdown.PriorityBrowser, func() { calls.Add(1) })
	assert.Equal(t, 1, shutdown.Pending())

	shutdown.Shutdown()
	release()
	release()
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, shutdown.Pending())

	calls.Store(0)
	release = releaseOnce("test resource", shutdown.PriorityBrowser, func() { calls.Add(1) })
	release()
	shutdown.Shutdown()
	assert.Equal(t, int32(1), calls.Load())
	assert.Zero(t, shutdown.Pending())
}

func TestServerPortInUse(t *testing.T) {
	first := NewServer([]byte(diagram), 0)
	require.NoError(t, first.Start())
	defer first.Shutdown(context.Background()) //nolint:errcheck

	second := NewServer([]byte(diagram), first.Port)
	assert.Error(t, second.Start())
}

func TestCaptureSchedule(t *testing.T) {
	total, interval := CaptureSchedule(15, 15*time.Second)
	assert.Equal(t, 225, total)
	assert.Equal(t, time.Second/15, interval)

	total, interval = CaptureSchedule(30, 1500*time.Millisecond)
	assert.Equal(t, 45, total)
	assert.Equal(t, time.Second/30, interval)

	total, _ = CaptureSchedule(0, time.Second)
	assert.Zero(t, total)
}

func TestFrameDelay(t *testing.T) {
	interval := time.Second / 15
	assert.Equal(t, interval-10*time.Millisecond, FrameDelay(interval, 10*time.Millisecond))
	assert.Zero(t, FrameDelay(interval, interval))
	assert.Zero(t, FrameDelay(interval, time.Second))
}

func TestCapture(t *testing.T) {
	var got []int
	start := time.Now()
	n, err := capture(context.Background(), 5, 10*time.Millisecond,
		func() ([]byte, error) { return []byte("png"), nil },
		func(frame int, png []byte) error {
			got = append(got, frame)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond, "frames keep their interval")
}

func TestCaptureErrors(t *testing.T) {
	shots := 0
	n, err := capture(context.Background(), 10, 0,
		func() ([]byte, error) {
			shots++
			if shots == 3 {
				return nil, errors.New("page crashed")
			}
			return nil, nil
		},
		func(int, []byte) error { return nil })
	assert.EqualError(t, err, "page crashed")
	assert.Equal(t, 2, n)

	ctx, cancel := context.WithCancel(context.Background())
	n, err = capture(ctx, 100, time.Hour,
		func() ([]byte, error) { return nil, nil },
		func(int, []byte) error {
			cancel()
			return nil
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
}

func TestRecorderDefaults(t *testing.T) {
	r := New("out/frames")
	assert.Equal(t, DefaultURL, r.URL)
	assert.False(t, r.Headless)
	assert.Equal(t, []string{
		"--window-size=1280,720",
		"--disable-web-security",
		"--allow-file-access-from-files",
	}, r.LaunchArgs())
	assert.Equal(t, filepath.Join("out/frames", "frame-00042.png"), r.Path(42))

	empty := &Recorder{Dir: "x", Width: 640, Height: 480}
	assert.Equal(t, "--window-size=640,480", empty.LaunchArgs()[0])
	assert.Equal(t, filepath.Join("x", "frame-00000.png"), empty.Path(0))
}

func TestRecord(t *testing.T) {
	if os.Getenv("ANIMATOR_BROWSER_TESTS") == "" {
		t.Skip("set ANIMATOR_BROWSER_TESTS to record with chromium")
	}
	r := New(t.TempDir())
	r.Headless = true
	r.Port = 0
	r.FPS = 5
	r.Duration = time.Second

	rec, err := r.Record(context.Background(), []byte(diagram))
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Frames)
	assert.FileExists(t, r.Path(4))
}
