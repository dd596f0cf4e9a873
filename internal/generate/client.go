// Package generate issues single-shot reply generation requests.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/parley/internal/session"
)

// ErrEmptyReply is the failure cause when the backend answers with no text.
var ErrEmptyReply = errors.New("backend returned an empty reply")

// Backend produces reply text for one prompt.
type Backend interface {
	Reply(ctx context.Context, prompt string) (string, error)
}

// Client wraps a backend with a per-request timeout and the uniform outcome contract.
type Client struct {
	backend Backend
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient builds a client. A non-positive timeout disables the bound.
func NewClient(backend Backend, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{backend: backend, timeout: timeout, logger: logger}
}

// Generate makes exactly one backend attempt. Errors, timeouts, and blank replies are failures.
func (c *Client) Generate(ctx context.Context, prompt string) session.Outcome {
	if c.backend == nil {
		return session.Failure(session.ErrGeneratorUnavailable.Error(), session.ErrGeneratorUnavailable)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	reply, err := c.backend.Reply(ctx, prompt)
	elapsed := time.Since(started)

	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			reason = fmt.Sprintf("timed out after %s", c.timeout)
		}
		c.logger.Warn("generation request failed", "error", err.Error(), "elapsed_ms", elapsed.Milliseconds())
		return session.Failure(reason, err)
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		c.logger.Warn("generation returned empty reply", "elapsed_ms", elapsed.Milliseconds())
		return session.Failure(ErrEmptyReply.Error(), ErrEmptyReply)
	}

	c.logger.Debug("generation completed", "reply_length", len(reply), "elapsed_ms", elapsed.Milliseconds())
	return session.Success(reply)
}
