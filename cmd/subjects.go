package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/model"
	"github.com/jjenkins/recnotify/internal/service"
	"github.com/jjenkins/recnotify/internal/store"
)

var subjectsReload bool

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "Show the cached subject registry",
	Long: `Subjects prints the subject registry: abbreviation, portal id, whether
recording is allowed, and the full name.

The registry is built from the portal when nothing is cached or when --reload
is given; otherwise the portal is not contacted.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, log := bootstrap()
		defer log.Sync()

		ctx, cancel := signalContext(log)
		defer cancel()

		st, err := store.Open(ctx, cfg.Cache, log)
		if err != nil {
			log.Fatal("Failed to open cache store", zap.Error(err))
		}
		defer st.Close()

		client, err := newPortalClient("listing", cfg.Portal, log)
		if err != nil {
			log.Fatal("Failed to create portal session", zap.Error(err))
		}

		registry := service.NewRegistry(&lazyLogin{client: client}, st, cfg.Cache.SubjectsKey, nil, log)
		subjects, err := registry.GetSubjects(ctx, subjectsReload)
		if err != nil {
			log.Error("Failed to load subject registry", zap.Error(err))
			log.Sync()
			os.Exit(1)
		}

		printSubjects(os.Stdout, subjects)
	},
}

func init() {
	rootCmd.AddCommand(subjectsCmd)
	subjectsCmd.Flags().BoolVarP(&subjectsReload, "reload", "r", false, "Rebuild the registry from the portal")
}

func printSubjects(w io.Writer, subjects *model.SubjectRegistry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ABBR\tID\tRECORDING\tNAME")
	for abbr, subject := range subjects.All() {
		recording := "no"
		if subject.RecordingAllowed {
			recording = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", abbr, subject.ID, recording, subject.FullName)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d subjects\n", subjects.Len())
}
