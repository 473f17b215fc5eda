package domain

import "strings"

// PosterDiscount is a per-(poster type, size) rule. Percent and Amount are
// alternatives: pricing applies whichever yields the larger per-unit cut.
// The authoritative copy lives on the server; the identifier is assigned
// there on create.
type PosterDiscount struct {
	ID         int64
	PosterType string
	Size       string
	Percent    float64
	Amount     float64
}

// Matches reports whether the rule applies to the given catalog coordinates.
// Thickness is deliberately not part of the match key.
func (d PosterDiscount) Matches(posterType, size string) bool {
	return d.PosterType == posterType && d.Size == size
}

// PromoCode is an order-level discount redeemed by code. Codes are unique
// and matched case-insensitively.
type PromoCode struct {
	ID      int64
	Code    string
	Percent float64
	Amount  float64
}

// MatchesCode reports whether the submitted code redeems this promo.
func (p PromoCode) MatchesCode(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), strings.TrimSpace(p.Code))
}
