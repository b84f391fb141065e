package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/store"
)

// RunOptions selects what one notify run does
type RunOptions struct {
	Year           int
	ReloadSubjects bool
	DryRun         bool
}

// RunnerConfig holds the static settings of a Runner
type RunnerConfig struct {
	ContactsKey      string
	NotificationsKey string
	// OutputFile receives the flattened payload; empty skips the file
	OutputFile   string
	NotPublished PermissionSet
	Contacts     ContactResolverOptions
	Abbreviate   AbbreviationFunc
}

// Runner orchestrates one notification run: subjects, listing, grouping,
// contact resolution, output and dispatch
type Runner struct {
	registry   *Registry
	listing    RecordingSource
	contacts   ContactSource
	store      store.Store
	dispatcher *Dispatcher
	metrics    *Metrics
	cfg        RunnerConfig
	logger     *zap.Logger
}

// NewRunner creates a Runner. dispatcher may be nil when every run is a dry run.
func NewRunner(registry *Registry, listing RecordingSource, contacts ContactSource, st store.Store, dispatcher *Dispatcher, metrics *Metrics, cfg RunnerConfig, logger *zap.Logger) *Runner {
	if cfg.Contacts.Metrics == nil {
		cfg.Contacts.Metrics = metrics
	}
	return &Runner{
		registry:   registry,
		listing:    listing,
		contacts:   contacts,
		store:      st,
		dispatcher: dispatcher,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger.Named("runner"),
	}
}

// Run executes one run for opts.Year. Caches that reached a consistent state
// before a failure stay saved; the run record is only written for runs that
// produced a payload.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*model.RunRecord, error) {
	record := &model.RunRecord{
		RunID:     uuid.NewString(),
		Year:      opts.Year,
		StartedAt: time.Now().UTC(),
		DryRun:    opts.DryRun,
	}
	log := r.logger.With(zap.String("run_id", record.RunID), zap.Int("year", opts.Year))

	if !opts.DryRun && r.dispatcher == nil {
		return nil, fmt.Errorf("notifier is not configured")
	}

	directory, err := LoadContactDirectory(ctx, r.store, r.cfg.ContactsKey)
	if err != nil {
		return nil, err
	}
	log.Info("Loaded contact directory", zap.Int("contacts", directory.Len()))

	subjects, err := r.registry.GetSubjects(ctx, opts.ReloadSubjects)
	if err != nil {
		return nil, err
	}
	log.Info("Subject registry ready", zap.Int("subjects", subjects.Len()))

	resolver := NewContactResolver(r.contacts, directory, r.cfg.Contacts, r.logger)
	builder := NewBuilder(resolver, r.cfg.Abbreviate, r.logger)

	notifications, rows, buildErr := builder.BuildForYear(ctx, r.listing, opts.Year, subjects, r.cfg.NotPublished)

	// contacts resolved before a failed build are kept
	if err := r.store.Save(ctx, r.cfg.ContactsKey, directory); err != nil {
		if buildErr != nil {
			log.Error("Failed to save contact directory", zap.Error(err))
			return nil, buildErr
		}
		return nil, fmt.Errorf("failed to save contact directory: %w", err)
	}
	if buildErr != nil {
		return nil, buildErr
	}

	payload := Flatten(notifications)
	record.RowsScanned = rows
	record.Owners = len(payload)
	record.Payload = payload
	for _, owner := range payload {
		record.Recordings += len(owner.PendingRecordings)
		if owner.OwnerContact == "" {
			record.UnresolvedContacts++
		}
	}

	if r.cfg.OutputFile != "" {
		if err := WriteJSONFile(r.cfg.OutputFile, payload); err != nil {
			return nil, err
		}
		log.Info("Wrote notification payload", zap.String("file", r.cfg.OutputFile))
	}

	var dispatchErr error
	if opts.DryRun {
		log.Info("Dry run, notifier not called")
	} else {
		result, err := r.dispatcher.Send(ctx, payload)
		record.DispatchStatus = result.StatusCode
		record.DispatchBody = result.Body
		dispatchErr = err
	}

	record.FinishedAt = time.Now().UTC()
	r.metrics.ObserveRun(record)

	if err := r.store.Save(ctx, r.cfg.NotificationsKey, record); err != nil {
		return record, errors.Join(dispatchErr, fmt.Errorf("failed to save run record: %w", err))
	}
	return record, dispatchErr
}

// LoadContactDirectory loads the persisted directory; an absent entry yields an empty one
func LoadContactDirectory(ctx context.Context, st store.Store, key string) (*model.ContactDirectory, error) {
	directory := model.NewContactDirectory()
	if _, err := st.Load(ctx, key, directory); err != nil {
		return nil, fmt.Errorf("failed to load contact directory: %w", err)
	}
	return directory, nil
}

// LoadLastRun loads the record of the most recent run, or nil when there is none
func LoadLastRun(ctx context.Context, st store.Store, key string) (*model.RunRecord, error) {
	var record model.RunRecord
	found, err := st.Load(ctx, key, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to load last run: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

// PrintSummary prints the run statistics
func PrintSummary(w io.Writer, record *model.RunRecord) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== Notification Summary ===")
	fmt.Fprintf(w, "Run:                 %s\n", record.RunID)
	fmt.Fprintf(w, "Year:                %d\n", record.Year)
	fmt.Fprintf(w, "Rows scanned:        %d\n", record.RowsScanned)
	fmt.Fprintf(w, "Owners:              %d\n", record.Owners)
	fmt.Fprintf(w, "Pending recordings:  %d\n", record.Recordings)
	fmt.Fprintf(w, "Unresolved contacts: %d\n", record.UnresolvedContacts)

	switch {
	case record.DryRun:
		fmt.Fprintln(w, "Dispatch:            skipped (dry run)")
	case record.DispatchStatus == 0:
		fmt.Fprintln(w, "Dispatch:            failed (no response)")
	default:
		fmt.Fprintf(w, "Dispatch:            %d %s\n", record.DispatchStatus, record.DispatchBody)
	}
	fmt.Fprintf(w, "Duration:            %s\n", record.FinishedAt.Sub(record.StartedAt).Round(time.Millisecond))
}
