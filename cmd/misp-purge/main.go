package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/misp-purge/internal/model"
	"github.com/alfredjeanlab/misp-purge/internal/runner"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string

	first     string
	last      string
	dryRun    bool
	verbose   bool
	blocklist bool
	orgUUID   string
	force     bool
)

// defaultWindow returns yesterday and today as UTC calendar dates.
func defaultWindow(now time.Time) (string, string) {
	now = now.UTC()
	return now.AddDate(0, 0, -1).Format(model.DateLayout), now.Format(model.DateLayout)
}

var rootCmd = &cobra.Command{
	Use:   "misp-purge",
	Short: "Purge events from a MISP instance in paced batches",
	Long: `misp-purge deletes MISP events published in a date window, optionally
limited to one organization, or removes event blocklist entries created in
that window. Deletes are sent in chunks with pauses so the MISP database
can keep up.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runPurge,
}

func init() {
	yesterday, today := defaultWindow(time.Now())

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file (default $MISP_PURGE_CONFIG or ./misp-purge.toml)")

	f := rootCmd.Flags()
	f.StringVarP(&first, "first", "f", yesterday, "oldest events to purge, YYYY-MM-DD")
	f.StringVarP(&last, "last", "l", today, "newest events to purge, YYYY-MM-DD")
	f.BoolVarP(&dryRun, "dryrun", "d", false, "report what would be deleted without deleting anything")
	f.BoolVarP(&verbose, "verbose", "v", false, "print each chunk and blocklist entry as it is processed")
	f.BoolVarP(&blocklist, "blocklist", "b", false, "purge event blocklist entries instead of events")
	f.StringVarP(&orgUUID, "orguuid", "o", "", "only purge events created by this organization UUID")
	f.BoolVar(&force, "force", false, "do not ask for confirmation and skip pacing pauses [DELETION WILL BE DONE]")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitCode maps a run error to the process exit status. A declined
// confirmation is a normal exit.
func exitCode(err error) int {
	if err == nil || errors.Is(err, runner.ErrDeclined) {
		return 0
	}
	return 1
}

func main() {
	err := rootCmd.Execute()
	if code := exitCode(err); code != 0 {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(code)
	}
}
