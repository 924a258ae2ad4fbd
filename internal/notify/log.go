package notify

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
)

// LogChannel writes messages to the log instead of a remote service. It is
// used when no real channel is configured.
type LogChannel struct {
	logger *slog.Logger
	maxLen int
	seq    atomic.Int64
}

// NewLogChannel creates a LogChannel that chunks at maxLen.
func NewLogChannel(logger *slog.Logger, maxLen int) *LogChannel {
	return &LogChannel{logger: logger, maxLen: maxLen}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) MaxLen() int { return c.maxLen }

func (c *LogChannel) Post(_ context.Context, replyTo, text string) (string, error) {
	id := strconv.FormatInt(c.seq.Add(1), 10)
	c.logger.Info("post", "id", id, "reply_to", replyTo, "text", text)
	return id, nil
}
