package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jjenkins/recnotify/internal/service"
	"github.com/jjenkins/recnotify/internal/store"
)

var contactsOut string

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Dump the contact directory as JSON",
	Long: `Contacts writes the cached owner -> email directory as indented JSON.
Owners whose lookup found nothing appear with an empty email.

Examples:
  # Write to CONTACTS_OUTPUT_FILE
  ./recnotify contacts

  # Print to stdout
  ./recnotify contacts --out -`,
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

		out := contactsOut
		if out == "" {
			out = cfg.Output.ContactsFile
		}
		count, err := dumpContacts(ctx, st, cfg.Cache.ContactsKey, out, os.Stdout)
		if err != nil {
			log.Error("Failed to dump contacts", zap.Error(err))
			log.Sync()
			os.Exit(1)
		}
		if out != "-" {
			log.Info("Wrote contact directory", zap.String("file", out), zap.Int("contacts", count))
		}
	},
}

func init() {
	rootCmd.AddCommand(contactsCmd)
	contactsCmd.Flags().StringVarP(&contactsOut, "out", "o", "", "Output file, - for stdout (default CONTACTS_OUTPUT_FILE)")
}

// dumpContacts writes the directory to path, or to stdout when path is "-"
func dumpContacts(ctx context.Context, st store.Store, key, path string, stdout io.Writer) (int, error) {
	directory, err := service.LoadContactDirectory(ctx, st, key)
	if err != nil {
		return 0, err
	}

	if path == "-" {
		data, err := service.EncodeJSON(directory, true)
		if err != nil {
			return 0, err
		}
		if _, err := fmt.Fprintln(stdout, string(data)); err != nil {
			return 0, err
		}
		return directory.Len(), nil
	}

	if err := service.WriteJSONFile(path, directory); err != nil {
		return 0, err
	}
	return directory.Len(), nil
}
