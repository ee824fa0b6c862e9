package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/misp-purge/internal/config"
	"github.com/alfredjeanlab/misp-purge/internal/events"
	"github.com/alfredjeanlab/misp-purge/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream purge run events from NATS",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("json")
		topic, _ := cmd.Flags().GetString("topic")
		natsURL, _ := cmd.Flags().GetString("nats-url")
		if natsURL == "" {
			natsURL = os.Getenv("MISP_PURGE_NATS_URL")
		}
		if natsURL == "" {
			cfg, err := config.Read(configPath)
			if err != nil {
				return err
			}
			natsURL = cfg.NATSURL
		}
		if natsURL == "" {
			return fmt.Errorf("no NATS URL: set --nats-url or MISP_PURGE_NATS_URL")
		}

		ui.SetColor(ui.ShouldUseColor())
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		out := cmd.OutOrStdout()
		sub, err := events.NewNATSSubscriber(natsURL,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "NATS disconnected: %v\n", err)
				}
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				fmt.Fprintln(cmd.ErrOrStderr(), "NATS reconnected")
			}),
		)
		if err != nil {
			return err
		}
		defer sub.Close()

		return watchEvents(ctx, sub, topic, out, raw)
	},
}

func init() {
	watchCmd.Flags().Bool("json", false, "print raw event payloads")
	watchCmd.Flags().String("topic", events.TopicAll, "NATS subject to subscribe to")
	watchCmd.Flags().String("nats-url", "", "NATS server URL (default $MISP_PURGE_NATS_URL or config)")
}

func watchEvents(ctx context.Context, sub events.Subscriber, topic string, out io.Writer, raw bool) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return err
	}
	defer cancel()

	fmt.Fprintf(out, "Watching %s (Ctrl-C to stop)\n", topic)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if raw {
				fmt.Fprintf(out, "%s %s\n", msg.Topic, msg.Data)
				continue
			}
			fmt.Fprintln(out, formatEvent(msg))
		}
	}
}

// formatEvent renders one event as a single human-readable line.
func formatEvent(msg events.Message) string {
	decode := func(v any) bool { return json.Unmarshal(msg.Data, v) == nil }

	switch msg.Topic {
	case events.TopicRunStarted:
		var e events.RunStarted
		if decode(&e) {
			mode := string(e.Mode)
			if e.DryRun {
				mode += ", dry-run"
			}
			return fmt.Sprintf("%s %s started (%s) %s..%s", stamp(e.At), ui.RenderAccent(e.RunID), mode, e.First, e.Last)
		}
	case events.TopicChunkDeleted, events.TopicChunkFailed:
		var e events.ChunkDone
		if decode(&e) {
			mark := ui.RenderOK("OK")
			if msg.Topic == events.TopicChunkFailed {
				mark = ui.RenderFail("FAILED")
			}
			return fmt.Sprintf("%s %s chunk %d: %d deleted, %d failed %s",
				stamp(e.Chunk.At), ui.RenderAccent(e.RunID), e.Chunk.Index, e.Chunk.Counters.Success, e.Chunk.Counters.Failed, mark)
		}
	case events.TopicBlocklistDeleted:
		var e events.BlocklistDeleted
		if decode(&e) {
			mark := ui.RenderOK("OK")
			if !e.OK {
				mark = ui.RenderFail("FAILED")
			}
			return fmt.Sprintf("%s blocklist %s -> %s", ui.RenderAccent(e.RunID), e.EventUUID, mark)
		}
	case events.TopicRunCompleted, events.TopicRunAborted:
		var e events.RunFinished
		if decode(&e) {
			line := fmt.Sprintf("%s %s %s: %d candidates, %d deleted, %d failed",
				stamp(e.At), ui.RenderAccent(e.RunID), e.Outcome, e.Candidates, e.Totals.Success, e.Totals.Failed)
			if e.Error != "" {
				line += " " + ui.RenderFail(e.Error)
			}
			return line
		}
	}
	return fmt.Sprintf("%s %s", ui.RenderMuted(msg.Topic), msg.Data)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ui.RenderMuted("--:--:--")
	}
	return ui.RenderMuted(t.Local().Format(time.TimeOnly))
}
