package recorder

import (
	"context"
	"math"
	"time"
)

// CaptureSchedule returns how many frames a recording of duration at fps
// captures, and the interval between them
func CaptureSchedule(fps int, duration time.Duration) (int, time.Duration) {
	if fps <= 0 || duration <= 0 {
		return 0, 0
	}
	total := int(math.Round(duration.Seconds() * float64(fps)))
	return total, time.Second / time.Duration(fps)
}

// FrameDelay is how long to wait after a capture that took elapsed to keep
// frames interval apart
func FrameDelay(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// capture takes total screenshots interval apart, handing each to sink as
// soon as it is taken. It returns the number of frames captured.
func capture(ctx context.Context, total int, interval time.Duration,
	shoot func() ([]byte, error), sink func(frame int, png []byte) error) (int, error) {
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		start := time.Now()
		data, err := shoot()
		if err != nil {
			return i, err
		}
		if err := sink(i, data); err != nil {
			return i, err
		}
		if i == total-1 {
			break
		}
		if err := sleep(ctx, FrameDelay(interval, time.Since(start))); err != nil {
			return i + 1, err
		}
	}
	return total, nil
}
