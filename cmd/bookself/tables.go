package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bookself/internal/cart"
	"bookself/internal/catalog"
	"bookself/internal/order"
	"bookself/internal/report"

	"github.com/olekukonko/tablewriter"
)

func printProducts(w io.Writer, products []catalog.Product) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Title", "Author", "Shelf", "Price", "Discount", "Rating", "Stock")
	for _, p := range products {
		discount := ""
		if p.Discount > 0 {
			discount = fmt.Sprintf("-%d%%", p.Discount)
		}
		if err := table.Append([]string{
			p.ID.String(),
			report.TruncateText(p.Title, 32),
			report.TruncateText(p.Author, 24),
			string(p.Category) + "/" + p.Subcategory,
			report.FormatVND(p.Price),
			discount,
			strconv.FormatFloat(p.Rating, 'f', 1, 64),
			strconv.Itoa(p.Stock),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func printShelves(w io.Writer, shelves []catalog.Shelf) error {
	table := tablewriter.NewWriter(w)
	table.Header("Category", "Subcategory", "Products")
	for _, s := range shelves {
		if err := table.Append([]string{string(s.Category), s.Subcategory, strconv.Itoa(s.Count)}); err != nil {
			return err
		}
	}
	return table.Render()
}

func printProduct(w io.Writer, p catalog.Product) {
	fmt.Fprintf(w, "%s (#%s)\n", p.Title, p.ID)
	fmt.Fprintf(w, "  author:    %s\n", p.Author)
	fmt.Fprintf(w, "  publisher: %s, %s\n", p.Publisher, p.Published)
	fmt.Fprintf(w, "  shelf:     %s/%s\n", p.Category, p.Subcategory)
	fmt.Fprintf(w, "  price:     %s (was %s, -%d%%)\n", report.FormatVND(p.Price), report.FormatVND(p.OriginalPrice), p.Discount)
	fmt.Fprintf(w, "  rating:    %.1f from %d reviews\n", p.Rating, p.ReviewCount)
	fmt.Fprintf(w, "  in stock:  %t (%d)\n", p.InStock(), p.Stock)
	if len(p.Tags) > 0 {
		fmt.Fprintf(w, "  tags:      %s\n", strings.Join(p.Tags, ", "))
	}
	if p.Description != "" {
		fmt.Fprintf(w, "\n  %s\n", p.Description)
	}
}

func printCart(w io.Writer, lines []cart.Line) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Title", "Price", "Qty", "Line total")
	var (
		items int
		total int64
	)
	for _, l := range lines {
		items += l.Quantity
		total += l.LineTotal
		if err := table.Append([]string{
			l.Product.ID.String(),
			report.TruncateText(l.Product.Title, 32),
			report.FormatVND(l.Product.Price),
			strconv.Itoa(l.Quantity),
			report.FormatVND(l.LineTotal),
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d items, %s\n", items, report.FormatVND(total))
	return nil
}

func printOrders(w io.Writer, orders []order.Order) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Created", "User", "Items", "Total", "Status", "Delivery")
	for _, o := range orders {
		if err := table.Append([]string{
			strconv.Itoa(o.ID),
			o.CreatedAt.Local().Format(time.DateTime),
			o.UserID,
			strconv.Itoa(o.ItemCount()),
			report.FormatVND(o.Total()),
			string(o.Status),
			string(o.DeliveryMethod),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func printOrder(w io.Writer, o order.Order) {
	fmt.Fprintf(w, "order #%d  %s  %s\n", o.ID, o.Status, o.CreatedAt.Local().Format(time.DateTime))
	c := o.Customer
	fmt.Fprintf(w, "  ship to:  %s, %s\n", c.Name, c.Phone)
	fmt.Fprintf(w, "            %s, %s, %s\n", c.Address, c.District, c.City)
	fmt.Fprintf(w, "  payment:  %s, delivery: %s\n", o.PaymentMethod, o.DeliveryMethod)
	for _, it := range o.Items {
		fmt.Fprintf(w, "  %3d x %-32s %14s\n", it.Quantity, report.TruncateText(it.Title, 32), report.FormatVND(it.LineTotal))
	}
	fmt.Fprintf(w, "  subtotal %s + shipping %s = %s\n",
		report.FormatVND(o.Subtotal), report.FormatVND(o.ShippingCost), report.FormatVND(o.Total()))
	if o.Note != "" {
		fmt.Fprintf(w, "  note: %s\n", o.Note)
	}
	for _, h := range o.StatusHistory {
		fmt.Fprintf(w, "  %s  %-10s by %s  %s\n", h.Timestamp.Local().Format(time.DateTime), h.Status, h.UpdatedBy, h.Note)
	}
}
