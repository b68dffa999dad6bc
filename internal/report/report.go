// Package report builds the admin revenue and status summaries.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"bookself/internal/order"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Rollup describes one aggregate over the order list.
type Rollup struct {
	Type        string
	Name        string
	Description string
	Match       order.Predicate
}

// Row is the result of a Rollup.
type Row struct {
	Type        string
	Name        string
	Description string
	Orders      int
	Revenue     int64
}

// Source lists orders; *order.Manager satisfies it.
type Source interface {
	List(ctx context.Context) ([]order.Order, error)
}

// Rollups returns the standard dashboard rollups relative to now. Revenue
// periods exclude cancelled orders and use now's location for calendar units.
func Rollups(now time.Time) []Rollup {
	rollups := []Rollup{
		{
			Type:        "Revenue",
			Name:        "Today",
			Description: "Orders placed today, cancelled orders excluded.",
			Match:       order.All(order.OnDay(now), order.NotCancelled),
		},
		{
			Type:        "Revenue",
			Name:        "This month",
			Description: "Orders placed this calendar month, cancelled orders excluded.",
			Match:       order.All(order.InMonth(now), order.NotCancelled),
		},
		{
			Type:        "Revenue",
			Name:        "This year",
			Description: "Orders placed this calendar year, cancelled orders excluded.",
			Match:       order.All(order.InYear(now), order.NotCancelled),
		},
		{
			Type:        "Revenue",
			Name:        "All time",
			Description: "Every order that was not cancelled.",
			Match:       order.NotCancelled,
		},
	}
	for _, s := range order.Statuses {
		rollups = append(rollups, Rollup{
			Type:        "Status",
			Name:        string(s),
			Description: fmt.Sprintf("Orders currently %s.", s),
			Match:       order.WithStatus(s),
		})
	}
	return rollups
}

// Build evaluates rollups over orders.
func Build(orders []order.Order, rollups []Rollup) []Row {
	rows := make([]Row, 0, len(rollups))
	for _, r := range rollups {
		rows = append(rows, Row{
			Type:        r.Type,
			Name:        r.Name,
			Description: r.Description,
			Orders:      order.Count(orders, r.Match),
			Revenue:     order.SumTotals(orders, r.Match),
		})
	}
	return rows
}

// Run loads the orders from src and evaluates the standard rollups.
func Run(ctx context.Context, src Source, now time.Time) ([]Row, error) {
	orders, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	return Build(orders, Rollups(now)), nil
}

// Render writes rows as a table grouped by Type.
func Render(w io.Writer, rows []Row) error {
	table := tablewriter.NewWriter(w)
	table.Header("Type", "#", "Rollup", "Description", "Orders", "Revenue")

	currentType := ""
	typeCounter := 0
	for _, row := range rows {
		typ := ""
		if row.Type != currentType {
			currentType = row.Type
			typeCounter = 0
			typ = row.Type
		}
		typeCounter++
		if err := table.Append([]string{
			typ,
			strconv.Itoa(typeCounter),
			row.Name,
			TruncateText(row.Description, 40),
			strconv.Itoa(row.Orders),
			FormatVND(row.Revenue),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

var printer = message.NewPrinter(language.Vietnamese)

// FormatVND renders an amount with Vietnamese digit grouping, e.g. "1.250.000 ₫".
func FormatVND(amount int64) string {
	return printer.Sprintf("%d ₫", amount)
}

// TruncateText cuts s after limit runes and appends an ellipsis. Multi-byte
// characters are never split.
func TruncateText(s string, limit int) string {
	n := 0
	for i := range s {
		if n == max(limit, 0) {
			return s[:i] + "…"
		}
		n++
	}
	return s
}
