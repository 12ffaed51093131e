package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/pgEdge/ecomdw/internal/config"
	"github.com/pgEdge/ecomdw/internal/db"
	"github.com/pgEdge/ecomdw/internal/warehouse"
)

var (
	reportTopN int
	reportFrom string
	reportTo   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run an analytical report against the warehouse",
	Long: `Run one of the warehouse's read-only analytical reports:

  monthly-revenue   Payment totals per calendar month of order placement
  top-categories    Highest-grossing product categories by item sales
  retention         Fraction of customers ordering in more than one month

Example:
  ecomdw report monthly-revenue --connection "postgres://..."
  ecomdw report top-categories --top-n 5 --from 2023-01-01 --to 2023-06-30`,
}

func init() {
	reportCmd.PersistentFlags().IntVar(&reportTopN, "top-n", 0,
		"number of categories for top-categories")
	reportCmd.PersistentFlags().StringVar(&reportFrom, "from", "",
		"only include orders placed on or after this date (YYYY-MM-DD)")
	reportCmd.PersistentFlags().StringVar(&reportTo, "to", "",
		"only include orders placed on or before this date (YYYY-MM-DD)")

	reportCmd.AddCommand(&cobra.Command{
		Use:   "monthly-revenue",
		Short: "Sum of payment values per (year, month) of order placement",
		RunE:  runMonthlyRevenue,
	})
	reportCmd.AddCommand(&cobra.Command{
		Use:   "top-categories",
		Short: "Top categories by summed item price, descending",
		RunE:  runTopCategories,
	})
	reportCmd.AddCommand(&cobra.Command{
		Use:   "retention",
		Short: "Customer retention rate across calendar months",
		RunE:  runRetention,
	})
}

// reportSetup validates config, connects, and verifies the warehouse exists.
func reportSetup(ctx context.Context) (*pgxpool.Pool, warehouse.QueryOptions, error) {
	if reportTopN > 0 {
		cfg.Report.TopN = reportTopN
	}
	if reportFrom != "" {
		cfg.Report.From = reportFrom
	}
	if reportTo != "" {
		cfg.Report.To = reportTo
	}

	if err := cfg.ValidateReport(); err != nil {
		return nil, warehouse.QueryOptions{}, err
	}

	opts := warehouse.QueryOptions{TopN: cfg.Report.TopN}
	if cfg.Report.From != "" {
		opts.From, _ = time.Parse(config.DateFormat, cfg.Report.From)
	}
	if cfg.Report.To != "" {
		opts.To, _ = time.Parse(config.DateFormat, cfg.Report.To)
	}

	pool, err := db.Connect(ctx, cfg.Connection)
	if err != nil {
		return nil, opts, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.CheckProvisioned(ctx, pool); err != nil {
		pool.Close()
		return nil, opts, err
	}

	return pool, opts, nil
}

func runMonthlyRevenue(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, opts, err := reportSetup(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	rows, err := warehouse.MonthlyRevenue(ctx, pool, opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "YEAR\tMONTH\tREVENUE")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%d\t%s\n", row.Year, row.Month, row.Revenue.StringFixed(2))
	}
	return w.Flush()
}

func runTopCategories(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, opts, err := reportSetup(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	rows, err := warehouse.TopCategories(ctx, pool, opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTOTAL_SALES")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\n", row.Category, row.TotalSales.StringFixed(2))
	}
	return w.Flush()
}

func runRetention(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool, opts, err := reportSetup(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	result, err := warehouse.RetentionRate(ctx, pool, opts)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPEAT_CUSTOMERS\tTOTAL_CUSTOMERS\tRETENTION_RATE")
	fmt.Fprintf(w, "%d\t%d\t%.4f\n", result.RepeatCustomers, result.TotalCustomers, result.Rate)
	return w.Flush()
}
