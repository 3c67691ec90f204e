// Package notify delivers user-facing notifications: collected per request for the
// browser, or written to a terminal.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/trezcool/schoolhealth/core"
)

// Collector accumulates the notifications of one request.
type Collector struct {
	mu    sync.Mutex
	items []core.Notification
}

var _ core.Notifier = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{items: make([]core.Notification, 0)}
}

func (c *Collector) Notify(_ context.Context, level core.NotificationLevel, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, core.Notification{Level: level, Message: msg})
}

// Notifications returns what was collected so far.
func (c *Collector) Notifications() []core.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(make([]core.Notification, 0, len(c.items)), c.items...)
}

type collectorKey struct{}

// WithCollector returns a context whose notifications go to c.
func WithCollector(ctx context.Context, c *Collector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

func CollectorFrom(ctx context.Context) (*Collector, bool) {
	c, ok := ctx.Value(collectorKey{}).(*Collector)
	return c, ok
}

// Context routes notifications to the Collector of the context, to Fallback when there is none.
type Context struct {
	Fallback core.Notifier
}

var _ core.Notifier = Context{}

func (n Context) Notify(ctx context.Context, level core.NotificationLevel, msg string) {
	if c, ok := CollectorFrom(ctx); ok {
		c.Notify(ctx, level, msg)
		return
	}
	if n.Fallback != nil {
		n.Fallback.Notify(ctx, level, msg)
	}
}

// Log writes notifications to the logger, at a level matching theirs.
type Log struct {
	Logger core.Logger
}

func (n Log) Notify(_ context.Context, level core.NotificationLevel, msg string) {
	switch level {
	case core.LevelError:
		n.Logger.Error("notification: " + msg)
	case core.LevelWarning:
		n.Logger.Warn("notification: " + msg)
	default:
		n.Logger.Info("notification: " + msg)
	}
}

var symbols = map[core.NotificationLevel]string{
	core.LevelSuccess: "✔",
	core.LevelInfo:    "ℹ",
	core.LevelWarning: "⚠",
	core.LevelError:   "✖",
}

// Terminal prints notifications as toast-like lines.
type Terminal struct {
	mu  sync.Mutex
	Out io.Writer
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{Out: out}
}

func (t *Terminal) Notify(_ context.Context, level core.NotificationLevel, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(t.Out, "%s %s\n", symbols[level], msg)
}
