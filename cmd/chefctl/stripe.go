package main

import (
	"context"
	"fmt"
	"time"

	stripeProvider "github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/provider/stripe"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var stripeCmd = &cobra.Command{
	Use:   "stripe",
	Short: "Check the Stripe configuration",
}

var stripePriceCmd = &cobra.Command{
	Use:   "price",
	Short: "Show the configured premium price and whether it is usable for checkout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		p, err := stripeProvider.NewStripeProvider(cfg.Stripe, cfg.Service.ClientURL, log)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		info, err := p.DescribePrice(ctx)
		if err != nil {
			return err
		}

		amount := decimal.New(info.UnitAmount, -2)
		fmt.Printf("%s (%s): %s %s per %s, active=%t\n",
			info.ID, info.ProductName, amount.StringFixed(2), info.Currency, info.Interval, info.Active)

		if !info.Active || info.Interval == "" {
			return fmt.Errorf("price %s cannot be used for a subscription checkout", info.ID)
		}
		return nil
	},
}

func init() {
	stripeCmd.AddCommand(stripePriceCmd)
}
