// Package shutdown runs cleanup hooks in priority order when the process is
// interrupted.
package shutdown

import (
	"container/heap"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/flanksource/commons/logger"
)

// Lower priorities run first: stop capturing before releasing the browser,
// release the browser before removing the frames it was writing.
const (
	PriorityCapture  = 0
	PriorityServer   = 100
	PriorityBrowser  = 200
	PriorityFrames   = 300
	PriorityDatabase = 400
	PriorityDefault  = PriorityServer
)

type Hook struct {
	label    string
	priority int
	fn       func()
	index    int // for heap interface
}

type HookHeap []*Hook

func (h HookHeap) Len() int { return len(h) }
func (h HookHeap) Less(i, j int) bool {
	if h[i].priority == h[j].priority {
		return h[i].label < h[j].label
	}
	return h[i].priority < h[j].priority
}
func (h HookHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *HookHeap) Push(x interface{}) {
	n := len(*h)
	item := x.(*Hook)
	item.index = n
	*h = append(*h, item)
}

func (h *HookHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	*h = old[0 : n-1]
	return item
}

var (
	hooks    HookHeap
	hooksMux sync.Mutex
	exit     = os.Exit
)

// AddHook registers a shutdown hook with default priority
func AddHook(label string, fn func()) func() {
	return AddHookWithPriority(label, PriorityDefault, fn)
}

// AddHookWithPriority registers a shutdown hook with specific priority. The
// returned function unregisters the hook once its resource was released.
func AddHookWithPriority(label string, priority int, fn func()) func() {
	hooksMux.Lock()
	defer hooksMux.Unlock()

	hook := &Hook{
		label:    label,
		priority: priority,
		fn:       fn,
	}
	heap.Push(&hooks, hook)

	var once sync.Once
	return func() {
		once.Do(func() {
			hooksMux.Lock()
			defer hooksMux.Unlock()
			if hook.index >= 0 && hook.index < len(hooks) && hooks[hook.index] == hook {
				heap.Remove(&hooks, hook.index)
			}
		})
	}
}

// Pending returns the number of registered hooks
func Pending() int {
	hooksMux.Lock()
	defer hooksMux.Unlock()
	return len(hooks)
}

// Shutdown executes all registered hooks in priority order
func Shutdown() {
	hooksMux.Lock()
	pending := make([]*Hook, 0, len(hooks))
	for hooks.Len() > 0 {
		pending = append(pending, heap.Pop(&hooks).(*Hook))
	}
	hooksMux.Unlock()

	if len(pending) == 0 {
		return
	}

	logger.Debugf("Executing %d shutdown hooks", len(pending))
	for _, hook := range pending {
		logger.Debugf("Executing shutdown hook: %s (priority=%d)", hook.label, hook.priority)

		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic in shutdown hook %s: %v", hook.label, r)
				}
			}()
			hook.fn()
		}()
	}
}

// WithSignals returns a context that is cancelled on the first SIGINT or
// SIGTERM, after which the registered hooks run. A second signal forces exit
// until the returned cancel func is called.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 2)
	released := make(chan struct{})
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived %s, stopping (press Ctrl+C again to force exit)\n", sig)
			cancel()
			go func() {
				select {
				case <-sigChan:
					fmt.Fprintf(os.Stderr, "\nForce exit\n")
					exit(1)
				case <-released:
				}
			}()
			Shutdown()
		case <-ctx.Done():
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			cancel()
			signal.Stop(sigChan)
			close(released)
		})
	}
}
