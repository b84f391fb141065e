package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/store"
)

// Registry serves the subject registry from the cache store and rebuilds it
// from the portal on request
type Registry struct {
	source     SubjectSource
	store      store.Store
	key        string
	abbreviate AbbreviationFunc
	logger     *zap.Logger
}

// NewRegistry creates a Registry persisting under key. A nil abbreviate uses FirstToken.
func NewRegistry(source SubjectSource, st store.Store, key string, abbreviate AbbreviationFunc, logger *zap.Logger) *Registry {
	if abbreviate == nil {
		abbreviate = FirstToken
	}
	return &Registry{
		source:     source,
		store:      st,
		key:        key,
		abbreviate: abbreviate,
		logger:     logger.Named("registry"),
	}
}

// GetSubjects returns the cached registry, or rebuilds and persists it when
// forceReload is set or nothing usable is cached. A failed rebuild never
// falls back to the cached copy.
func (r *Registry) GetSubjects(ctx context.Context, forceReload bool) (*model.SubjectRegistry, error) {
	if !forceReload {
		cached := model.NewSubjectRegistry()
		found, err := r.store.Load(ctx, r.key, cached)
		if err != nil {
			return nil, fmt.Errorf("failed to load subject registry: %w", err)
		}
		if found && cached.Len() > 0 {
			r.logger.Debug("Using cached subject registry", zap.Int("subjects", cached.Len()))
			return cached, nil
		}
	}

	subjects, err := r.Rebuild(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.store.Save(ctx, r.key, subjects); err != nil {
		return nil, fmt.Errorf("failed to save subject registry: %w", err)
	}
	return subjects, nil
}

// Rebuild scrapes every subject and its recording permission without touching the cache
func (r *Registry) Rebuild(ctx context.Context) (*model.SubjectRegistry, error) {
	r.logger.Info("Rebuilding subject registry from portal")

	options, err := r.source.FetchSubjectOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate subjects: %w", err)
	}

	subjects := model.NewSubjectRegistry()
	for idx, option := range options {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		abbr, err := r.abbreviate(option.Label)
		if err != nil {
			return nil, fmt.Errorf("failed to derive abbreviation for option %q: %w", option.Value, err)
		}

		allowed, err := r.source.FetchRecordingAllowed(ctx, option)
		if err != nil {
			return nil, fmt.Errorf("failed to read recording permission: %w", err)
		}

		if prev, ok := subjects.Get(abbr); ok {
			r.logger.Warn("Subject abbreviation collision, keeping the later subject",
				zap.String("abbreviation", abbr),
				zap.String("replaced", prev.FullName),
				zap.String("kept", option.Label),
			)
		}
		subjects.Set(abbr, model.SubjectRecord{
			Abbreviation:     abbr,
			FullName:         option.Label,
			ID:               option.Value,
			RecordingAllowed: allowed,
		})

		r.logger.Debug("Subject read",
			zap.String("progress", fmt.Sprintf("[%d/%d]", idx+1, len(options))),
			zap.String("abbreviation", abbr),
			zap.Bool("recording_allowed", allowed),
		)
	}

	r.logger.Info("Subject registry rebuilt", zap.Int("subjects", subjects.Len()))
	return subjects, nil
}
