// Package indicator plays audible cues for listening and reply transitions.
package indicator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rbright/parley/internal/config"
	"github.com/rbright/parley/internal/session"
)

// Cues is a session.Observer that turns state transitions into sounds.
// Playback runs on one worker goroutine; cues are dropped while the queue is full.
type Cues struct {
	logger *slog.Logger
	play   func(context.Context, cueKind) error

	queue  chan cueKind
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	seen      bool
	listening bool
	awaiting  bool
}

// NewCues starts the playback worker. Close stops it.
func NewCues(cfg config.IndicatorConfig, logger *slog.Logger) *Cues {
	return newCues(logger, func(ctx context.Context, kind cueKind) error {
		if !cfg.SoundEnable {
			return nil
		}
		return playCue(ctx, kind, cfg)
	})
}

func newCues(logger *slog.Logger, play func(context.Context, cueKind) error) *Cues {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cues{
		logger: logger,
		play:   play,
		queue:  make(chan cueKind, 4),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.run()
	return c
}

// StateChanged cues listening start/stop and reply arrival.
func (c *Cues) StateChanged(state session.State) {
	c.mu.Lock()
	var cues []cueKind
	if c.seen {
		if state.Listening && !c.listening {
			cues = append(cues, cueListenStart)
		}
		if !state.Listening && c.listening {
			cues = append(cues, cueListenStop)
		}
		if !state.AwaitingReply && c.awaiting {
			cues = append(cues, cueReply)
		}
	}
	c.seen = true
	c.listening = state.Listening
	c.awaiting = state.AwaitingReply
	c.mu.Unlock()

	for _, kind := range cues {
		c.enqueue(kind)
	}
}

// Notice cues a surfaced error.
func (c *Cues) Notice(session.Notice) {
	c.enqueue(cueError)
}

// Close stops playback and waits for the worker.
func (c *Cues) Close() {
	c.cancel()
	<-c.done
}

func (c *Cues) enqueue(kind cueKind) {
	select {
	case c.queue <- kind:
	default:
		c.logger.Debug("indicator cue dropped", "cue", kind.String())
	}
}

func (c *Cues) run() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case kind := <-c.queue:
			if err := c.play(c.ctx, kind); err != nil {
				c.logger.Debug("indicator audio cue failed", "cue", kind.String(), "error", err.Error())
			}
		}
	}
}
