// Package tutorials keeps the in-memory tutorial list.
//
// Load moves through idle → loading → {success | retrying → loading | failed}.
// Only transient failures (no HTTP status, or 5xx) are retried, at most
// MaxAttempts times with a linear backoff of BaseDelay × attempt. Load never
// returns an error: the outcome is recorded in the list state.
//
// Create, Update and Delete apply the server's answer to the local list
// instead of reloading it. The local list is therefore not authoritative
// until the next Load.
package tutorials

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/foomo/contentsite/api"
	"github.com/foomo/contentsite/metrics"
	"github.com/foomo/contentsite/service/vo"
	"go.uber.org/zap"
)

const (
	MaxAttempts      = 3
	DefaultBaseDelay = time.Second
)

type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StateRetrying State = "retrying"
	StateSuccess  State = "success"
	StateFailed   State = "failed"
)

type Client interface {
	ListTutorials(ctx context.Context) ([]vo.Tutorial, error)
	CreateTutorial(ctx context.Context, tutorial vo.Tutorial) (*vo.Tutorial, error)
	UpdateTutorial(ctx context.Context, tutorial vo.Tutorial) (*vo.Tutorial, error)
	DeleteTutorial(ctx context.Context, id string) error
}

type Snapshot struct {
	State     State         `json:"state"`
	Tutorials []vo.Tutorial `json:"tutorials"`
	Err       error         `json:"-"`
	Attempts  int           `json:"attempts"`
}

type List struct {
	client    Client
	logger    *zap.Logger
	metrics   *metrics.Metrics
	baseDelay time.Duration
	onState   func(State)

	mu         sync.RWMutex
	generation uint64
	snapshot   Snapshot
	restore    *Snapshot // what a canceled in-flight Load goes back to
}

type Option func(*List)

func WithLogger(logger *zap.Logger) Option {
	return func(l *List) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *List) {
		l.metrics = m
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(l *List) {
		l.baseDelay = d
	}
}

// WithStateHook registers fn to observe every state transition.
func WithStateHook(fn func(State)) Option {
	return func(l *List) {
		l.onState = fn
	}
}

func New(client Client, opts ...Option) *List {
	l := &List{
		client:    client,
		logger:    zap.NewNop(),
		baseDelay: DefaultBaseDelay,
		snapshot:  Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *List) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.snapshot
	s.Tutorials = slices.Clone(s.Tutorials)
	return s
}

// Load fetches the list. A newer Load supersedes an older one; a canceled
// Load restores the state it found.
func (l *List) Load(ctx context.Context) {
	l.mu.Lock()
	l.generation++
	gen := l.generation
	previous := l.snapshot
	l.restore = &previous
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		if gen == l.generation {
			l.restore = nil
		}
		l.mu.Unlock()
	}()

	attempt := 0
	tutorials, err := retry.DoWithData(
		func() ([]vo.Tutorial, error) {
			attempt++
			l.update(gen, func(s *Snapshot) {
				s.State = StateLoading
				s.Attempts = attempt
			})
			start := time.Now()
			res, err := l.client.ListTutorials(ctx)
			l.metrics.ObserveFetch("tutorials", time.Since(start).Seconds())
			return res, err
		},
		retry.Context(ctx),
		retry.Attempts(MaxAttempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && api.IsTransient(err)
		}),
		retry.DelayType(func(_ uint, _ error, _ *retry.Config) time.Duration {
			return l.baseDelay * time.Duration(attempt)
		}),
		retry.OnRetry(func(_ uint, err error) {
			if attempt >= MaxAttempts {
				return
			}
			l.metrics.LoadAttempt("tutorials", "retry")
			l.logger.Warn("loading tutorials failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", l.baseDelay*time.Duration(attempt)),
				zap.Error(err),
			)
			l.update(gen, func(s *Snapshot) { s.State = StateRetrying })
		}),
	)

	if ctx.Err() != nil {
		l.metrics.LoadAttempt("tutorials", "canceled")
		l.update(gen, func(s *Snapshot) { *s = previous })
		return
	}
	if err != nil {
		l.metrics.LoadAttempt("tutorials", "failed")
		l.logger.Error("loading tutorials failed", zap.Int("attempts", attempt), zap.Error(err))
		l.update(gen, func(s *Snapshot) {
			s.State = StateFailed
			s.Tutorials = []vo.Tutorial{}
			s.Err = err
		})
		return
	}
	l.metrics.LoadAttempt("tutorials", "ok")
	if tutorials == nil {
		tutorials = []vo.Tutorial{}
	}
	l.update(gen, func(s *Snapshot) {
		s.State = StateSuccess
		s.Tutorials = tutorials
		s.Err = nil
	})
}

// update applies fn if gen is still the latest Load.
func (l *List) update(gen uint64, fn func(*Snapshot)) {
	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		return
	}
	before := l.snapshot.State
	fn(&l.snapshot)
	after := l.snapshot.State
	l.mu.Unlock()
	if l.onState != nil && before != after {
		l.onState(after)
	}
}

// mutate applies fn to the loaded list and to the list a canceled in-flight
// Load would restore, so local changes survive the cancellation.
func (l *List) mutate(fn func([]vo.Tutorial) []vo.Tutorial) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshot.Tutorials = fn(slices.Clone(l.snapshot.Tutorials))
	if l.restore != nil {
		l.restore.Tutorials = fn(slices.Clone(l.restore.Tutorials))
	}
}

func (l *List) Create(ctx context.Context, tutorial vo.Tutorial) (*vo.Tutorial, error) {
	created, err := l.client.CreateTutorial(ctx, tutorial)
	if err != nil {
		return nil, err
	}
	l.mutate(func(list []vo.Tutorial) []vo.Tutorial {
		return append(list, *created)
	})
	return created, nil
}

func (l *List) Update(ctx context.Context, tutorial vo.Tutorial) (*vo.Tutorial, error) {
	updated, err := l.client.UpdateTutorial(ctx, tutorial)
	if err != nil {
		return nil, err
	}
	l.mutate(func(list []vo.Tutorial) []vo.Tutorial {
		for i := range list {
			if list[i].ID == updated.ID {
				list[i] = *updated
			}
		}
		return list
	})
	return updated, nil
}

func (l *List) Delete(ctx context.Context, id string) error {
	if err := l.client.DeleteTutorial(ctx, id); err != nil {
		return err
	}
	l.mutate(func(list []vo.Tutorial) []vo.Tutorial {
		return slices.DeleteFunc(list, func(t vo.Tutorial) bool { return t.ID == id })
	})
	return nil
}

// Filter returns the loaded tutorials tagged with topic (case-insensitive).
// An empty topic returns everything.
func (l *List) Filter(topic string) []vo.Tutorial {
	all := l.Snapshot().Tutorials
	if topic == "" {
		return all
	}
	var out []vo.Tutorial
	for _, t := range all {
		if slices.ContainsFunc(t.Topics, func(s string) bool { return strings.EqualFold(s, topic) }) {
			out = append(out, t)
		}
	}
	return out
}

// Topics returns the distinct topics of the loaded tutorials, sorted.
func (l *List) Topics() []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range l.Snapshot().Tutorials {
		for _, topic := range t.Topics {
			key := strings.ToLower(topic)
			if topic == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, topic)
		}
	}
	sort.Strings(out)
	return out
}
