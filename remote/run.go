package remote

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Operation is the presentation contract of one backend call.
type Operation struct {
	Title   string
	Success string
	Error   string
}

// Level of a notification.
type Level string

const (
	LevelLoading Level = "loading"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is what an operator sees while a call is in flight and
// after it settles. TTL is how long it stays on screen; zero means until
// replaced.
type Notification struct {
	Level   Level         `json:"level"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	TTL     time.Duration `json:"ttl"`
	At      time.Time     `json:"at"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(n Notification)
}

// Observer is told about every settled call.
type Observer interface {
	ObserveRemote(title string, err error, elapsed time.Duration)
}

// DefaultNotificationTTL is how long success and error notices stay up.
const DefaultNotificationTTL = 4 * time.Second

// Runner wraps backend calls in the loading→success/error transition.
// Calls are never retried and nothing is rolled back on failure.
type Runner struct {
	notifier Notifier
	observer Observer
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewRunner creates a Runner. notifier and logger may be nil.
func NewRunner(notifier Notifier, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &Runner{
		notifier: notifier,
		logger:   logger.With(zap.String("component", "remote")),
		ttl:      DefaultNotificationTTL,
		now:      time.Now,
	}
}

// WithObserver attaches an Observer.
func (r *Runner) WithObserver(o Observer) *Runner {
	r.observer = o
	return r
}

// WithTTL changes how long settled notifications stay up.
func (r *Runner) WithTTL(ttl time.Duration) *Runner {
	r.ttl = ttl
	return r
}

// Run executes fn under op.
func (r *Runner) Run(ctx context.Context, op Operation, fn func(ctx context.Context) error) error {
	r.notifier.Notify(Notification{Level: LevelLoading, Title: op.Title, At: r.now()})
	start := r.now()

	err := fn(ctx)
	elapsed := r.now().Sub(start)
	if r.observer != nil {
		r.observer.ObserveRemote(op.Title, err, elapsed)
	}

	if err != nil {
		r.logger.Error("remote operation failed",
			zap.String("operation", op.Title),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		r.notifier.Notify(Notification{Level: LevelError, Title: op.Title, Message: op.Error, TTL: r.ttl, At: r.now()})
		return err
	}

	r.logger.Debug("remote operation succeeded",
		zap.String("operation", op.Title),
		zap.Duration("elapsed", elapsed))
	r.notifier.Notify(Notification{Level: LevelSuccess, Title: op.Title, Message: op.Success, TTL: r.ttl, At: r.now()})
	return nil
}

// Do is Run for calls that return a value.
func Do[T any](ctx context.Context, r *Runner, op Operation, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Run(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.With(zap.String("component", "notifier"))}
}

func (l *LogNotifier) Notify(n Notification) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("message", n.Message)}
	switch n.Level {
	case LevelError:
		l.logger.Warn("notification", fields...)
	default:
		l.logger.Debug("notification", append(fields, zap.String("level", string(n.Level)))...)
	}
}

// Inbox keeps notifications so they can be polled. Expired entries are
// dropped on read.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
	now   func() time.Time
}

func NewInbox() *Inbox {
	return &Inbox{now: time.Now}
}

func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()
	// a settled notice replaces the loading notice of the same call
	if n.Level != LevelLoading {
		for j := len(i.items) - 1; j >= 0; j-- {
			if i.items[j].Level == LevelLoading && i.items[j].Title == n.Title {
				i.items = append(i.items[:j], i.items[j+1:]...)
				break
			}
		}
	}
	i.items = append(i.items, n)
}

// Active returns notifications that have not expired.
func (i *Inbox) Active() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	now := i.now()
	kept := i.items[:0]
	for _, n := range i.items {
		if n.TTL > 0 && now.After(n.At.Add(n.TTL)) {
			continue
		}
		kept = append(kept, n)
	}
	i.items = kept
	return append([]Notification(nil), kept...)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, x := range m {
		x.Notify(n)
	}
}
