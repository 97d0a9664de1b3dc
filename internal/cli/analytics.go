package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rl1809/inventory-ledger/internal/adapter/storage"
	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

func NewPriceRangeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "price-range <min> <max>",
		Short: "Rank items priced within [min, max] into Budget, Mid-Range and Premium",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			min, err := decimal.NewFromString(args[0])
			if err != nil {
				return domain.Validation("input", "invalid min %q", args[0])
			}
			max, err := decimal.NewFromString(args[1])
			if err != nil {
				return domain.Validation("input", "invalid max %q", args[1])
			}
			items, err := opts.app.svc.ByPriceRange(cmd.Context(), min, max)
			if err != nil {
				return err
			}
			return printRanked(cmd.OutOrStdout(), opts.Format, items)
		},
	}
}

func NewLowStockCommand(opts *RootOptions) *cobra.Command {
	var threshold int
	cmd := &cobra.Command{
		Use:   "low-stock",
		Short: "List items at or below a stock threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := opts.app.svc.LowStock(cmd.Context(), threshold)
			if err != nil {
				return err
			}
			return printLowStock(cmd.OutOrStdout(), opts.Format, items)
		},
	}
	cmd.Flags().IntVar(&threshold, "threshold", 10, "stock threshold")
	return cmd
}

func NewStatsCommand(opts *RootOptions) *cobra.Command {
	var rebuild bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the aggregate item count and average price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				stats domain.AggregateStats
				err   error
			)
			if rebuild {
				stats, err = opts.app.svc.RebuildStats(cmd.Context())
			} else {
				stats, err = opts.app.svc.Stats(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.Format, map[string]any{
				"total_items":   stats.TotalItems,
				"total_price":   stats.TotalPrice.String(),
				"average_price": stats.AveragePrice.String(),
				"last_updated":  stats.LastUpdated,
			}, fmt.Sprintf("items: %d\naverage price: %s\nlast updated: %s",
				stats.TotalItems, stats.AveragePrice.StringFixed(2), stats.LastUpdated.Format("2006-01-02 15:04:05")))
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "recompute the aggregate from a full scan first")
	return cmd
}

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables and seed the aggregate row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.EnsureSchema(cmd.Context(), opts.app.conn); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.Format, map[string]any{"migrated": true}, "schema is up to date")
		},
	}
}
