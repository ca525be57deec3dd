//go:build unix

package shutdown

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSignals(t *testing.T) {
	done := make(chan struct{})
	AddHook("signal", func() { close(done) })

	ctx, stop := WithSignals(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("hooks did not run")
	}
}

func TestWithSignalsReleasesWatchersOnStop(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, stop := WithSignals(context.Background())
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled")
	}
	stop()
	stop()
}

func TestWithSignalsForcesExitOnSecondSignal(t *testing.T) {
	defer leaktest.Check(t)()

	var code atomic.Int32
	exited := make(chan struct{})
	exit = func(c int) {
		code.Store(int32(c))
		close(exited)
	}
	defer func() { exit = os.Exit }()

	ctx, stop := WithSignals(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))
	<-ctx.Done()
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("second signal did not force exit")
	}
	assert.Equal(t, int32(1), code.Load())
}
