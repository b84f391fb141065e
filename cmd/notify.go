package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/config"
	"github.com/jjenkins/recnotify/internal/service"
	"github.com/jjenkins/recnotify/internal/store"
)

var notifyYear int
var notifyReloadSubjects bool
var notifyDryRun bool

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Collect unpublished recordings and send them to the notifier",
	Long: `Notify scans the recordings listing of one calendar year for recordings
whose permission is still in NOT_PUBLISHED_ZAZNAM_PERM, groups them by owner,
resolves owner emails and posts the result to NOTIFIER_SERVER.

The payload is also written to OUTPUT_FILE. The subject registry and the
contact directory are cached between runs.

Examples:
  # Notify about this year's recordings
  ./recnotify notify

  # Rebuild the subject registry first
  ./recnotify notify --reload-subjects

  # Build the payload for 2023 without calling the notifier
  ./recnotify notify --year 2023 --dry-run`,
	Run: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().IntVarP(&notifyYear, "year", "y", time.Now().Year(), "Calendar year of the recordings listing")
	notifyCmd.Flags().BoolVar(&notifyReloadSubjects, "reload-subjects", false, "Rebuild the subject registry from the portal")
	notifyCmd.Flags().BoolVar(&notifyDryRun, "dry-run", false, "Write the payload but do not call the notifier")
}

func runNotify(cmd *cobra.Command, args []string) {
	cfg, log := bootstrap()
	defer log.Sync()

	if err := cfg.ValidateForNotify(notifyDryRun); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	opts := service.RunOptions{
		Year:           notifyYear,
		ReloadSubjects: notifyReloadSubjects,
		DryRun:         notifyDryRun,
	}
	if err := notify(ctx, cfg, log, opts); err != nil {
		switch {
		case ctx.Err() != nil:
			log.Error("Notify cancelled")
		case errors.Is(err, service.ErrNoAccess):
			log.Error("Portal access denied", zap.Error(err))
		case errors.Is(err, service.ErrDispatch):
			log.Error("Notifier rejected the payload; local output was kept", zap.Error(err))
		default:
			log.Error("Scraper could not finish properly", zap.Error(err))
		}
		log.Sync()
		os.Exit(1)
	}
}

func notify(ctx context.Context, cfg *config.Config, log *zap.Logger, opts service.RunOptions) error {
	st, err := store.Open(ctx, cfg.Cache, log)
	if err != nil {
		return fmt.Errorf("failed to open cache store: %w", err)
	}
	defer st.Close()

	metrics := service.NewMetrics()

	// listing and contact lookups each need their own page state
	listing, err := newPortalClient("listing", cfg.Portal, log)
	if err != nil {
		return err
	}
	contacts, err := newPortalClient("contacts", cfg.Portal, log)
	if err != nil {
		return err
	}
	log.Info("Logging in to portal...")
	if err := listing.Login(ctx); err != nil {
		return err
	}
	if err := contacts.Login(ctx); err != nil {
		return err
	}

	var dispatcher *service.Dispatcher
	if !opts.DryRun {
		dispatcher, err = service.NewDispatcher(cfg.Notifier, metrics, log)
		if err != nil {
			return err
		}
	}

	registry := service.NewRegistry(listing, st, cfg.Cache.SubjectsKey, nil, log)
	runner := service.NewRunner(registry, listing, contacts, st, dispatcher, metrics, service.RunnerConfig{
		ContactsKey:      cfg.Cache.ContactsKey,
		NotificationsKey: cfg.Cache.NotificationsKey,
		OutputFile:       cfg.Output.NotificationsFile,
		NotPublished:     service.NewPermissionSet(cfg.Portal.NotPublishedPermissions...),
		Contacts:         contactOptions(cfg.Contacts, metrics),
	}, log)

	log.Info("Starting notify run", zap.Int("year", opts.Year), zap.Bool("dry_run", opts.DryRun))
	record, runErr := runner.Run(ctx, opts)
	if record != nil {
		service.PrintSummary(os.Stdout, record)
	}

	if err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Portal.Timeout); err != nil {
		log.Warn("Failed to push metrics", zap.Error(err))
	}
	return runErr
}
