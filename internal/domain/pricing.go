package domain

// PriceBreakdown captures the full monetary result of pricing a cart. It is
// derived on every evaluation and never persisted on its own; the checkout
// flow snapshots the grand total into the submitted order instead.
//
// Catalog prices are whole currency units, but percent rules produce
// fractional amounts, so the breakdown carries float64 values rounded to two
// decimal places at exactly two points: the item-discount total and the
// grand total. Intermediate arithmetic keeps full precision.
type PriceBreakdown struct {
	Subtotal                  float64
	ItemDiscountTotal         float64
	SubtotalAfterItemDiscount float64
	DeliveryCharge            float64
	PromoDiscount             float64
	GrandTotal                float64
}
