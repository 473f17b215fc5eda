package domain

import "time"

// CartItem is a single line in the shopping cart. Items created from a
// custom upload carry the server-issued order code in CustomOrderRef and an
// engine-assigned title; catalog items keep whatever title the caller chose,
// including the empty string.
type CartItem struct {
	ID             string
	Title          string
	Image          string
	PosterType     string
	Size           string
	Thickness      string
	UnitPrice      int64
	Quantity       int
	CustomOrderRef string
	AddedAt        time.Time
}

// IsCustom reports whether the item originated from a user upload.
func (i CartItem) IsCustom() bool {
	return i.CustomOrderRef != ""
}

// LineSubtotal is the undiscounted price contribution of the line.
func (i CartItem) LineSubtotal() int64 {
	if i.Quantity <= 0 || i.UnitPrice < 0 {
		return 0
	}
	return i.UnitPrice * int64(i.Quantity)
}

// CartState is the full persisted cart: the ordered item list plus the
// naming sequence for custom uploads. CustomCounter only increases while the
// cart lives; removing a custom item does not decrement it.
type CartState struct {
	Items         []CartItem
	CustomCounter int64
}

// Clone returns a deep copy so callers can hand the state out without
// exposing internal slices to mutation.
func (s CartState) Clone() CartState {
	dup := CartState{CustomCounter: s.CustomCounter, Items: make([]CartItem, len(s.Items))}
	copy(dup.Items, s.Items)
	return dup
}

// IsEmpty reports whether the cart holds no items.
func (s CartState) IsEmpty() bool {
	return len(s.Items) == 0
}
