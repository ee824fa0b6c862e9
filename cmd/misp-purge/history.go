package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/misp-purge/internal/config"
	"github.com/alfredjeanlab/misp-purge/internal/model"
	"github.com/alfredjeanlab/misp-purge/internal/store"
	"github.com/alfredjeanlab/misp-purge/internal/store/postgres"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded purge runs, or show one run's chunks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Read(configPath)
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("no run ledger configured: set MISP_PURGE_DATABASE_URL")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		s, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			run, err := s.GetRun(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("run %s not found", args[0])
			}
			if err != nil {
				return err
			}
			printRun(out, run)
			return nil
		}

		runs, err := s.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		printRuns(out, runs)
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to list")
}

func printRuns(w io.Writer, runs []*model.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tMODE\tWINDOW\tOUTCOME\tCANDIDATES\tDELETED\tFAILED")
	for _, r := range runs {
		mode := string(r.Mode)
		if r.DryRun {
			mode += " (dry)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s..%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), mode, r.First, r.Last,
			r.Outcome, r.Candidates, r.Totals.Success, r.Totals.Failed)
	}
	tw.Flush()
}

func printRun(w io.Writer, r *model.Run) {
	fmt.Fprintf(w, "Run:        %s\n", r.ID)
	fmt.Fprintf(w, "Mode:       %s\n", r.Mode)
	fmt.Fprintf(w, "Window:     %s..%s\n", r.First, r.Last)
	if r.OrgUUID != "" {
		fmt.Fprintf(w, "Org:        %s\n", r.OrgUUID)
	}
	fmt.Fprintf(w, "Dry run:    %t\n", r.DryRun)
	fmt.Fprintf(w, "Outcome:    %s\n", r.Outcome)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", r.Error)
	}
	fmt.Fprintf(w, "Started:    %s\n", r.StartedAt.Local().Format(time.DateTime))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Duration:   %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(w, "Candidates: %d\n", r.Candidates)
	fmt.Fprintf(w, "Result:     %d deleted, %d failed\n", r.Totals.Success, r.Totals.Failed)

	if len(r.Chunks) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHUNK\tAT\tSIZE\tDELETED\tFAILED\tSTATUS\tERROR")
	for _, c := range r.Chunks {
		status := "-"
		if c.StatusCode != 0 {
			status = fmt.Sprint(c.StatusCode)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			c.Index, c.At.Local().Format(time.TimeOnly), len(c.IDs),
			c.Counters.Success, c.Counters.Failed, status, strings.TrimSpace(c.Error))
	}
	tw.Flush()
}
