package domain

import "time"

// OrderContact carries the shipping fields collected at checkout. Only the
// city participates in pricing; the rest passes through to the order
// endpoint untouched.
type OrderContact struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	Thana      string
	PostalCode string
}

// Order is the snapshot submitted to the remote order endpoint: the cart
// contents at submission time, the shipping contact, and the grand total the
// engine computed. The engine's responsibility ends once the snapshot is
// accepted; it never retries and never mutates the cart as part of
// submission.
type Order struct {
	ClientRef     string
	Contact       OrderContact
	PaymentMethod string
	PromoCode     string
	Items         []CartItem
	GrandTotal    float64
	SubmittedAt   time.Time
}
