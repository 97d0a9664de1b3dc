package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, format string, v any, text string) error {
	if format == "json" {
		return printJSON(w, v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func optional(s *string) string {
	if s == nil {
		return "N/A"
	}
	return *s
}

func printItem(w io.Writer, format string, it domain.Item) error {
	if format == "json" {
		return printJSON(w, it)
	}
	modified := "N/A"
	if it.ModifiedAt != nil {
		modified = it.ModifiedAt.Format("2006-01-02 15:04")
	}
	fmt.Fprintf(w, "ID: %d\nName: %s\nDescription: %s\nPrice: $%s\nStock: %d\nCreated: %s\nModified: %s\n",
		it.ID, it.Name, optional(it.Description), it.Price.StringFixed(2), it.StockQuantity,
		it.CreatedAt.Format("2006-01-02 15:04"), modified)
	if it.PreviousPrice != nil {
		fmt.Fprintf(w, "Previous price: $%s\n", it.PreviousPrice.StringFixed(2))
	}
	if it.PriceChangePercent != nil {
		fmt.Fprintf(w, "Price change: %s%%\n", it.PriceChangePercent.StringFixed(2))
	}
	return nil
}

func printAnnotated(w io.Writer, format string, items []domain.AnnotatedItem) error {
	if format == "json" {
		return printJSON(w, items)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY\t% OF AVG")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			it.ID, it.Name, it.Price.StringFixed(2), it.StockQuantity, it.Category, it.PercentOfAverage.StringFixed(2))
	}
	return tw.Flush()
}

func printRanked(w io.Writer, format string, items []domain.RankedItem) error {
	if format == "json" {
		return printJSON(w, items)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tNAME\tPRICE\tPERCENTILE\tSEGMENT")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%.2f\t%s\n",
			it.PriceRank, it.ID, it.Name, it.Price.StringFixed(2), it.Percentile, it.Segment)
	}
	return tw.Flush()
}

func printLowStock(w io.Writer, format string, items []domain.StockAnnotatedItem) error {
	if format == "json" {
		return printJSON(w, items)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTOCK\tSTATUS\t% OF AVG")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			it.ID, it.Name, it.StockQuantity, it.Status, it.PercentOfAverage.StringFixed(2))
	}
	return tw.Flush()
}

func printHistory(w io.Writer, format string, entries []domain.HistoryEntry) error {
	if format == "json" {
		return printJSON(w, entries)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tACTION\tPRICE\tSTOCK")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s -> %s\t%s -> %s\n",
			e.ActionAt.Format("2006-01-02 15:04:05"), e.Action,
			optionalPrice(e.OldPrice), optionalPrice(e.NewPrice), optionalInt(e.OldStock), optionalInt(e.NewStock))
	}
	return tw.Flush()
}

func optionalPrice(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return d.StringFixed(2)
}

func optionalInt(i *int) string {
	if i == nil {
		return "-"
	}
	return fmt.Sprint(*i)
}

// FormatError renders err as its message plus the underlying cause, if any.
func FormatError(err error) string {
	msg := "Error: " + err.Error()
	var tagged *domain.Error
	if errors.As(err, &tagged) && tagged.Err != nil {
		msg += "\n  caused by: " + tagged.Err.Error()
	}
	return msg
}
