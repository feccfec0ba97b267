package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	ledgerPostgres "github.com/frahmantamala/gym-storefront/internal/ledger/postgres"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Cash register commands",
}

var ledgerReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print daily cash register totals",
	Long:  `Print one line per business day with the register state and its gross, fee, tax and net totals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printLedgerReport(cmd.Context())
	},
}

var (
	reportFrom string
	reportTo   string
)

func printLedgerReport(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	today := app.Ledger.BusinessDate(time.Now())
	from, to := reportFrom, reportTo
	if to == "" {
		to = today
	}
	if from == "" {
		from = to
	}

	rows, err := ledgerPostgres.NewReportRepository(app.SQL).Daily(ctx, app.Config.Gateway.GatewayID, from, to)
	if err != nil {
		return fmt.Errorf("ledger report: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSTATE\tTXNS\tMOVEMENTS\tGROSS\tFEE\tTAX\tNET")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.BusinessDate, r.State, r.TransactionCount, r.Movements, r.GrossTotal, r.FeeTotal, r.TaxTotal, r.NetTotal)
	}
	return w.Flush()
}

func init() {
	ledgerReportCmd.Flags().StringVar(&reportFrom, "from", "", "first business date, YYYY-MM-DD (defaults to --to)")
	ledgerReportCmd.Flags().StringVar(&reportTo, "to", "", "last business date, YYYY-MM-DD (defaults to today)")

	ledgerCmd.AddCommand(ledgerReportCmd)
	rootCmd.AddCommand(ledgerCmd)
}
