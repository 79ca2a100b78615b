package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/pkg/messaging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var eventsSource string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with the failure event channel",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print failure events as they are published",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		if !cfg.Redis.Enabled {
			return fmt.Errorf("redis is disabled; failure events are only logged")
		}

		client, err := messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		messages, err := client.Subscribe(ctx, cfg.Redis.EventChannel)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", cfg.Redis.EventChannel, err)
		}

		log.Info("Tailing failure events",
			zap.String("channel", cfg.Redis.EventChannel),
			zap.String("source", eventsSource))
		return tailEvents(ctx, messages, eventsSource, os.Stdout, log)
	},
}

func init() {
	eventsTailCmd.Flags().StringVar(&eventsSource, "source", "", "only print events whose source starts with this prefix")
	eventsCmd.AddCommand(eventsTailCmd)
}

// tailEvents writes one line per event until messages closes or ctx is done.
func tailEvents(ctx context.Context, messages <-chan messaging.Message, source string, out io.Writer, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var event provider.FailureEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.Warn("Skipping undecodable event", zap.Error(err))
				continue
			}
			if source != "" && !strings.HasPrefix(event.Source, source) {
				continue
			}

			fmt.Fprintln(out, formatEvent(event))
		}
	}
}

func formatEvent(event provider.FailureEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s code=%s",
		event.Timestamp.Format("2006-01-02T15:04:05Z07:00"), event.Source, event.Kind, event.Code)
	if event.UserID != "" {
		fmt.Fprintf(&b, " user=%s", event.UserID)
	}
	for _, k := range sortedKeys(event.Fields) {
		fmt.Fprintf(&b, " %s=%s", k, event.Fields[k])
	}
	fmt.Fprintf(&b, " %q", event.Message)
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
