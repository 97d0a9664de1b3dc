package cli

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

type itemFlags struct {
	name        string
	description string
	price       string
	stock       int
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "item name")
	cmd.Flags().StringVar(&f.description, "description", "", "item description")
	cmd.Flags().StringVar(&f.price, "price", "", "unit price")
	cmd.Flags().IntVar(&f.stock, "stock", 0, "stock quantity")
}

func (f *itemFlags) input(cmd *cobra.Command) (domain.ItemInput, error) {
	price, err := decimal.NewFromString(f.price)
	if err != nil {
		return domain.ItemInput{}, domain.Validation("input", "invalid price %q", f.price)
	}
	in := domain.ItemInput{Name: f.name, Price: price, StockQuantity: f.stock}
	if cmd.Flags().Changed("description") {
		d := f.description
		in.Description = &d
	}
	return in, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("input", "invalid item id %q", arg)
	}
	return id, nil
}

func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all items with their price category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := opts.app.svc.List(cmd.Context())
			if err != nil {
				return err
			}
			return printAnnotated(cmd.OutOrStdout(), opts.Format, items)
		},
	}
}

func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one item and its last price change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := opts.app.svc.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.NotFound("get", id)
			}
			return printItem(cmd.OutOrStdout(), opts.Format, *item)
		},
	}
}

func NewCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		f   itemFlags
		key string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := f.input(cmd)
			if err != nil {
				return err
			}
			id, err := opts.app.svc.Create(cmd.Context(), in, key)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.Format, map[string]any{"id": id}, fmt.Sprintf("created item %d", id))
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&key, "idempotency-key", "", "reject a repeated create with the same key")
	return cmd
}

func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	var f itemFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace an item's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			in, err := f.input(cmd)
			if err != nil {
				return err
			}
			item := domain.Item{
				ID:            id,
				Name:          in.Name,
				Description:   in.Description,
				Price:         in.Price,
				StockQuantity: in.StockQuantity,
			}
			if err := opts.app.svc.Update(cmd.Context(), item); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.Format, map[string]any{"id": id}, fmt.Sprintf("updated item %d", id))
		},
	}
	f.register(cmd)
	return cmd
}

func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an item (its history is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := opts.app.svc.Delete(cmd.Context(), id); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.Format, map[string]any{"id": id}, fmt.Sprintf("deleted item %d", id))
		},
	}
}

func NewStockCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stock <id> <quantity>",
		Short: "Set an item's stock quantity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return domain.Validation("input", "invalid quantity %q", args[1])
			}
			if err := opts.app.svc.UpdateStock(cmd.Context(), id, qty); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.Format, map[string]any{"id": id, "quantity": qty},
				fmt.Sprintf("item %d stock set to %d", id, qty))
		},
	}
}

func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the audit trail of an item, including deleted ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entries, err := opts.app.svc.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), opts.Format, entries)
		},
	}
}
