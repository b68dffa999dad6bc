package order

import "time"

// Filter narrows an order list. Zero fields do not filter; From and To are
// inclusive bounds on CreatedAt.
type Filter struct {
	Status Status
	From   time.Time
	To     time.Time
}

// Apply returns the orders matching f, keeping their order.
func (f Filter) Apply(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && o.CreatedAt.After(f.To) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Predicate selects orders for aggregation.
type Predicate func(Order) bool

// SumTotals adds up Total over the orders matching pred. A nil pred matches all.
func SumTotals(orders []Order, pred Predicate) int64 {
	var sum int64
	for _, o := range orders {
		if pred == nil || pred(o) {
			sum += o.Total()
		}
	}
	return sum
}

// Count returns how many orders match pred.
func Count(orders []Order, pred Predicate) int {
	n := 0
	for _, o := range orders {
		if pred == nil || pred(o) {
			n++
		}
	}
	return n
}

// OnDay matches orders created on the calendar day of ref, in ref's location.
func OnDay(ref time.Time) Predicate {
	y, m, d := ref.Date()
	loc := ref.Location()
	return func(o Order) bool {
		oy, om, od := o.CreatedAt.In(loc).Date()
		return oy == y && om == m && od == d
	}
}

// InMonth matches orders created in the calendar month of ref, in ref's location.
func InMonth(ref time.Time) Predicate {
	y, m, _ := ref.Date()
	loc := ref.Location()
	return func(o Order) bool {
		oy, om, _ := o.CreatedAt.In(loc).Date()
		return oy == y && om == m
	}
}

// InYear matches orders created in the calendar year of ref, in ref's location.
func InYear(ref time.Time) Predicate {
	y := ref.Year()
	loc := ref.Location()
	return func(o Order) bool {
		return o.CreatedAt.In(loc).Year() == y
	}
}

// WithStatus matches orders in status s.
func WithStatus(s Status) Predicate {
	return func(o Order) bool { return o.Status == s }
}

// NotCancelled matches every order that still counts as revenue.
func NotCancelled(o Order) bool {
	return o.Status != StatusCancelled
}

// All matches orders satisfying every pred.
func All(preds ...Predicate) Predicate {
	return func(o Order) bool {
		for _, p := range preds {
			if p != nil && !p(o) {
				return false
			}
		}
		return true
	}
}
