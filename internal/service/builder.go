package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/model"
)

// Resolver looks up an owner's contact email. Implementations never fail;
// "" means unknown.
type Resolver interface {
	Resolve(ctx context.Context, ownerName, subjectID string) string
}

// PermissionSet is the set of permission tokens that mark a recording as unpublished
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from tokens
func NewPermissionSet(tokens ...string) PermissionSet {
	set := make(PermissionSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Contains reports whether token is in the set
func (s PermissionSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Builder groups unpublished recordings by owner
type Builder struct {
	resolver   Resolver
	abbreviate AbbreviationFunc
	logger     *zap.Logger
}

// NewBuilder creates a Builder. A nil abbreviate uses FirstToken.
func NewBuilder(resolver Resolver, abbreviate AbbreviationFunc, logger *zap.Logger) *Builder {
	if abbreviate == nil {
		abbreviate = FirstToken
	}
	return &Builder{
		resolver:   resolver,
		abbreviate: abbreviate,
		logger:     logger.Named("builder"),
	}
}

// BuildForYear reads the listing of one calendar year from source and builds it
func (b *Builder) BuildForYear(ctx context.Context, source RecordingSource, year int, subjects *model.SubjectRegistry, notPublished PermissionSet) (*model.Notifications, int, error) {
	rows, err := source.FetchRecordingRows(ctx, year)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read recordings for %d: %w", year, err)
	}
	b.logger.Info("Read recordings listing", zap.Int("year", year), zap.Int("rows", len(rows)))

	notifications, err := b.Build(ctx, rows, subjects, notPublished)
	if err != nil {
		return nil, len(rows), err
	}
	return notifications, len(rows), nil
}

// Build filters rows by permission and groups them by owner in order of
// first appearance. The contact of each owner is resolved once, against the
// subject of that owner's first pending recording. A malformed date or a
// subject missing from the registry aborts the whole build.
func (b *Builder) Build(ctx context.Context, rows []model.RawRow, subjects *model.SubjectRegistry, notPublished PermissionSet) (*model.Notifications, error) {
	notifications := model.NewNotifications()

	for idx, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !notPublished.Contains(row.Permission) {
			continue
		}

		abbr, err := b.abbreviate(row.SubjectName)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", idx+1, err)
		}
		recordedAt, err := NormalizeRecordedAt(row.DateTime)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", idx+1, err)
		}

		recording := model.PendingRecording{
			RecordedAt:          recordedAt,
			SubjectFullName:     row.SubjectName,
			SubjectAbbreviation: abbr,
			CurrentPermission:   row.Permission,
		}

		subject, ok := subjects.Get(abbr)
		if !ok {
			return nil, fmt.Errorf("row %d: %w: %s", idx+1, ErrUnknownSubject, abbr)
		}

		if agg, ok := notifications.Get(row.OwnerName); ok {
			agg.PendingRecordings = append(agg.PendingRecordings, recording)
			continue
		}

		notifications.Set(row.OwnerName, &model.OwnerAggregate{
			OwnerName:         row.OwnerName,
			PendingRecordings: []model.PendingRecording{recording},
			ContactEmail:      b.resolver.Resolve(ctx, row.OwnerName, subject.ID),
		})
	}

	b.logger.Info("Grouped pending recordings", zap.Int("owners", notifications.Len()))
	return notifications, nil
}
