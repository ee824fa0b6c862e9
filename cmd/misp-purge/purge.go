package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/misp-purge/internal/client"
	"github.com/alfredjeanlab/misp-purge/internal/config"
	"github.com/alfredjeanlab/misp-purge/internal/events"
	"github.com/alfredjeanlab/misp-purge/internal/lock"
	"github.com/alfredjeanlab/misp-purge/internal/purge"
	"github.com/alfredjeanlab/misp-purge/internal/report"
	"github.com/alfredjeanlab/misp-purge/internal/runner"
	"github.com/alfredjeanlab/misp-purge/internal/store"
	"github.com/alfredjeanlab/misp-purge/internal/store/postgres"
	"github.com/alfredjeanlab/misp-purge/internal/ui"
)

// sinkOpenTimeout bounds connecting to the ledger and report destinations.
const sinkOpenTimeout = 30 * time.Second

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runPurge(cmd *cobra.Command, args []string) error {
	ui.SetColor(ui.ShouldUseColor())
	logger := newLogger(verbose)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "MISP Purge Events tool v.%s\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.VerifyCert {
		logger.Warn("TLS certificate verification disabled")
	}

	opts := runner.Options{
		First:     first,
		Last:      last,
		OrgUUID:   orgUUID,
		DryRun:    dryRun,
		Force:     force,
		Verbose:   verbose,
		Blocklist: blocklist,
		ChunkSize: cfg.ChunkSize,
		Pacing: purge.Pacing{
			PauseOnFailure:    cfg.PauseOnFailure.Duration,
			PauseInterval:     cfg.PauseInterval.Duration,
			PauseEvery:        cfg.PauseEvery,
			MaxFailedAttempts: cfg.MaxFailedAttempts,
		},
		CountRejected: cfg.CountRejected,
		ExcludeOrgs:   cfg.ExcludeOrgs,
	}
	if err := runner.Validate(opts, out); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The deletion prompt and the Ctrl-C prompt share one reader so an
	// answer always reaches the question on screen.
	lines := ui.NewLineReader(os.Stdin)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go guardInterrupts(ctx, cancel, sigs, askExit(lines, out))

	misp := client.NewHTTPClient(cfg.MISPURL, cfg.MISPKey, client.Options{
		SkipVerify: !cfg.VerifyCert,
		Logger:     logger,
	})
	defer misp.Close()

	openCtx, openCancel := context.WithTimeout(ctx, sinkOpenTimeout)
	defer openCancel()

	publisher := openPublisher(cfg, logger)
	defer publisher.Close()

	ledger := openStore(openCtx, cfg, logger)
	defer ledger.Close()

	deps := runner.Deps{
		MISP:      misp,
		Locker:    lock.New(cfg.LockFile),
		Publisher: publisher,
		Store:     ledger,
		Archiver:  buildArchiver(openCtx, cfg, logger),
		Out:       out,
		Logger:    logger,
	}
	if ui.IsInteractive() {
		deps.Confirmer = runner.PromptConfirmer{Lines: lines, Out: out}
	}

	r := runner.New(deps, opts)
	_, err = r.Run(ctx)
	return err
}

func openPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if cfg.NATSURL == "" {
		return &events.NoopPublisher{}
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		logger.Warn("events disabled", "err", err)
		return &events.NoopPublisher{}
	}
	logger.Debug("events enabled", "nats_url", cfg.NATSURL)
	return pub
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) store.Store {
	if cfg.DatabaseURL == "" {
		return store.Noop{}
	}
	s, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("run ledger disabled", "err", err)
		return store.Noop{}
	}
	return s
}

// buildArchiver returns an archiver for every configured report
// destination. A destination that cannot be set up is logged and skipped.
func buildArchiver(ctx context.Context, cfg *config.Config, logger *slog.Logger) *report.Archiver {
	var dests []report.Destination
	rc := cfg.Report

	if rc.Dir != "" {
		dests = append(dests, report.NewFileDestination(rc.Dir))
	}
	if rc.S3Bucket != "" {
		d, err := report.NewS3Destination(ctx, rc.S3Bucket, rc.S3Prefix, rc.S3Region, rc.S3Endpoint)
		if err != nil {
			logger.Warn("S3 report destination disabled", "err", err)
		} else {
			dests = append(dests, d)
		}
	}
	if rc.GitRepo != "" {
		dests = append(dests, report.NewGitDestination(rc.GitRepo, rc.GitDir, rc.GitBranch))
	}

	for _, d := range dests {
		logger.Debug("report destination enabled", "destination", d.Name())
	}
	return report.NewArchiver(logger, dests...)
}
