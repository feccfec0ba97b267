package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/gateway"
	"github.com/frahmantamala/gym-storefront/internal/core/datamodel/membership"
)

var clearData bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with gateway settings and membership plans",
	Long: `Seed the database with sandbox gateway settings and the default membership plans.
Credentials come from GATEWAY_MERCHANT_ID, GATEWAY_PUBLIC_KEY and GATEWAY_PRIVATE_KEY.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		app, err := newApp(ctx)
		if err != nil {
			log.Fatalf("failed to init app: %v", err)
		}
		defer app.Close()

		if clearData {
			for _, table := range []string{"membership_plans", "gateway_settings"} {
				if err := app.DB.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared plans and gateway settings")
		}

		settings := &gateway.Settings{
			GatewayID:       app.Config.Gateway.GatewayID,
			Name:            "openpay",
			MerchantID:      os.Getenv("GATEWAY_MERCHANT_ID"),
			PublicKey:       os.Getenv("GATEWAY_PUBLIC_KEY"),
			PrivateKey:      os.Getenv("GATEWAY_PRIVATE_KEY"),
			IsProduction:    false,
			DefaultCurrency: "MXN",
			FeeBasisPoints:  290,
			FixedFee:        250,
			TaxBasisPoints:  1600,
			IsActive:        true,
		}
		if settings.MerchantID == "" || settings.PrivateKey == "" {
			log.Fatal("GATEWAY_MERCHANT_ID and GATEWAY_PRIVATE_KEY must be set")
		}
		if err := app.Settings.Upsert(ctx, settings); err != nil {
			log.Fatalf("failed to seed gateway settings: %v", err)
		}
		fmt.Println("Seeded gateway settings:", settings.GatewayID)

		plans := []membership.Plan{
			{Code: "MONTHLY", Name: "Monthly membership", Price: 49900, Currency: "MXN", DurationDays: 30, GatewayPlanID: "plan_monthly"},
			{Code: "QUARTERLY", Name: "Quarterly membership", Price: 134900, Currency: "MXN", DurationDays: 90, GatewayPlanID: "plan_quarterly"},
			{Code: "ANNUAL", Name: "Annual membership", Price: 479900, Currency: "MXN", DurationDays: 365, GatewayPlanID: "plan_annual"},
		}
		for i := range plans {
			plans[i].IsActive = true
			if err := app.Memberships.SavePlan(ctx, &plans[i]); err != nil {
				log.Fatalf("failed to seed plan %s: %v", plans[i].Code, err)
			}
			fmt.Printf("Seeded membership plan: %s\n", plans[i].Code)
		}

		fmt.Println("Seed completed successfully")
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")
}
