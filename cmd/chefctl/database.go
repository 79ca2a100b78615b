package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.NewConnection(&cfg.Database, log, false)
		if err != nil {
			return err
		}
		defer database.Close(db, log)

		if err := database.Migrate(db, log); err != nil {
			return err
		}
		log.Info("Migration completed")
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect user subscription records",
}

var userShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Print a user's plan, usage and provider references",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.NewConnection(&cfg.Database, log, false)
		if err != nil {
			return err
		}
		defer database.Close(db, log)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		repos := database.NewRepositories(db, log)
		record, err := repos.User.GetByID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to load user %s: %w", args[0], err)
		}

		log.Debug("User loaded", zap.String("user_id", record.UserID))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

var eventsLimit int

var userEventsCmd = &cobra.Command{
	Use:   "events <user-id>",
	Short: "List the payment webhooks recorded for a user, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.NewConnection(&cfg.Database, log, false)
		if err != nil {
			return err
		}
		defer database.Close(db, log)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		repos := database.NewRepositories(db, log)
		events, err := repos.PaymentEvent.ListByUser(ctx, args[0], eventsLimit)
		if err != nil {
			return err
		}
		return writeEventTable(cmd.OutOrStdout(), events)
	},
}

func writeEventTable(out io.Writer, events []entity.PaymentEventRecord) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tPROVIDER\tEVENT\tOUTCOME\tSUBSCRIPTION\tERROR")
	for _, e := range events {
		errText := e.ErrorCode
		if e.ErrorMessage != "" {
			errText = e.ErrorCode + ": " + e.ErrorMessage
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ReceivedAt.UTC().Format(time.RFC3339), e.Provider, e.EventType, e.Outcome,
			orDash(e.SubscriptionRef), orDash(errText))
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	userEventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "maximum number of events (0 for all)")
	userCmd.AddCommand(userShowCmd, userEventsCmd)
}
