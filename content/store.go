package content

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/foomo/contentsite/metrics"
	"github.com/foomo/contentsite/sanitize"
	"go.uber.org/zap"
)

type Client interface {
	GetSiteContent(ctx context.Context) (map[string]json.RawMessage, error)
	UpdateSiteContent(ctx context.Context, section string, value json.RawMessage) (json.RawMessage, error)
}

// Store keeps the current site content. It starts out with the compiled-in
// defaults, so readers always see a complete value.
type Store struct {
	client   Client
	logger   *zap.Logger
	metrics  *metrics.Metrics
	onUpdate func(Key, Sections)

	mu       sync.RWMutex
	sections Sections
}

type StoreOption func(*Store)

func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithUpdateHook registers fn to run after a successful Update.
func WithUpdateHook(fn func(Key, Sections)) StoreOption {
	return func(s *Store) {
		s.onUpdate = fn
	}
}

func NewStore(client Client, opts ...StoreOption) *Store {
	s := &Store{
		client:   client,
		logger:   zap.NewNop(),
		sections: Defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sections returns a snapshot of the current content.
func (s *Store) Sections() Sections {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sections
}

// Load replaces the content with the server's sections merged over the
// defaults. On error the previous content stays in place.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.client.GetSiteContent(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return fmt.Errorf("failed to load site content: %w", err)
	}

	next := Defaults()
	for name, value := range raw {
		key := Key(name)
		if _, ok := sectionFields[key]; !ok {
			s.logger.Debug("ignoring unknown section", zap.String("section", name))
			continue
		}
		if err := mergeSection(&next, key, value); err != nil {
			s.logger.Warn("malformed section, using default", zap.String("section", name), zap.Error(err))
		}
	}

	s.mu.Lock()
	s.sections = next
	s.mu.Unlock()
	return nil
}

// Update validates raw locally, stores it on the server and replaces the
// section with what the server kept.
func (s *Store) Update(ctx context.Context, key Key, raw string) (Sections, error) {
	if _, ok := sectionFields[key]; !ok {
		return s.Sections(), fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}
	if err := sanitize.ValidateJSON(raw); err != nil {
		return s.Sections(), err
	}
	scratch := Defaults()
	if err := mergeSection(&scratch, key, json.RawMessage(raw)); err != nil {
		return s.Sections(), fmt.Errorf("%w: %v", sanitize.ErrInvalidJSON, err)
	}

	stored, err := s.client.UpdateSiteContent(ctx, string(key), json.RawMessage(raw))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return s.Sections(), ctxErr
	}
	if err != nil {
		s.metrics.SectionUpdate(string(key), "error")
		return s.Sections(), fmt.Errorf("failed to update section %q: %w", key, err)
	}

	s.mu.Lock()
	next := s.sections
	if err := mergeSection(&next, key, stored); err != nil {
		// the server echoed something we cannot read; keep the validated input
		s.logger.Warn("unreadable section echo", zap.String("section", string(key)), zap.Error(err))
		next = s.sections
		sectionFields[key].assign(&next, &scratch)
	}
	s.sections = next
	s.mu.Unlock()

	s.metrics.SectionUpdate(string(key), "ok")
	if s.onUpdate != nil {
		s.onUpdate(key, next)
	}
	return next, nil
}
