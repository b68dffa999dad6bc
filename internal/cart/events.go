package cart

import (
	"fmt"
	"time"

	"bookself/internal/catalog"
	"bookself/internal/collection"
	"bookself/internal/storage"
)

// Action is the kind of cart mutation carried by a change event.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionUpdate Action = "update"
	ActionClear  Action = "clear"
)

// ChangeEvent is a cart broadcast decoded for cart listeners.
type ChangeEvent struct {
	Action    Action
	ProductID catalog.ProductID
	Quantity  int
	Cart      []Entry
	Origin    string
	Time      time.Time
}

// DecodeChange converts a broadcast of the cart collection into a ChangeEvent.
func DecodeChange(ev storage.Event) (ChangeEvent, error) {
	if ev.Collection != CollectionName {
		return ChangeEvent{}, fmt.Errorf("event for %q is not a cart change", ev.Collection)
	}
	entries, err := collection.Decode[[]Entry](ev.Value)
	if err != nil {
		return ChangeEvent{}, err
	}
	out := ChangeEvent{
		Action:   Action(ev.Action),
		Quantity: ev.Quantity,
		Cart:     entries,
		Origin:   ev.Origin,
		Time:     ev.Time,
	}
	if ev.Subject != "" {
		id, err := catalog.ParseProductID(ev.Subject)
		if err != nil {
			return ChangeEvent{}, err
		}
		out.ProductID = id
	}
	return out, nil
}
