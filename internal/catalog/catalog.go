// Package catalog holds the read-only poster price list and its lookup
// helpers. The catalog is loaded once at startup and never mutated; a lookup
// miss is a sentinel, not an error, because an unmatched selection usually
// means the customer has not finished choosing yet.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "embed"
)

//go:embed pricelist.json
var defaultPriceList []byte

// ErrInvalidPriceList is returned when catalog data cannot be parsed.
var ErrInvalidPriceList = errors.New("catalog: invalid price list")

// PriceEntry pairs a size descriptor with its whole-unit price.
type PriceEntry struct {
	Size  string `json:"size"`
	Price int64  `json:"price"`
}

// priceGroup is one poster type's entries: either a flat size list, or a
// thickness axis mapping to size lists. Exactly one of the two is set.
type priceGroup struct {
	flat        []PriceEntry
	byThickness map[string][]PriceEntry
	thicknesses []string
}

// Catalog maps poster-type names to their price structure.
type Catalog struct {
	groups map[string]priceGroup
	types  []string
}

// Parse decodes price list JSON in the storefront's native shape: each
// poster type maps to either an array of {size, price} entries or an object
// keyed by thickness name.
func Parse(data []byte) (Catalog, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Catalog{}, fmt.Errorf("%w: %v", ErrInvalidPriceList, err)
	}

	groups := make(map[string]priceGroup, len(raw))
	for name, payload := range raw {
		posterType := strings.TrimSpace(name)
		if posterType == "" {
			return Catalog{}, fmt.Errorf("%w: empty poster type name", ErrInvalidPriceList)
		}
		group, err := parseGroup(payload)
		if err != nil {
			return Catalog{}, fmt.Errorf("%w: poster type %q: %v", ErrInvalidPriceList, posterType, err)
		}
		groups[posterType] = group
	}

	types := make([]string, 0, len(groups))
	for name := range groups {
		types = append(types, name)
	}
	sort.Strings(types)

	return Catalog{groups: groups, types: types}, nil
}

func parseGroup(payload json.RawMessage) (priceGroup, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "[") {
		var entries []PriceEntry
		if err := json.Unmarshal(payload, &entries); err != nil {
			return priceGroup{}, err
		}
		if err := validateEntries(entries); err != nil {
			return priceGroup{}, err
		}
		return priceGroup{flat: entries}, nil
	}

	var byThickness map[string][]PriceEntry
	if err := json.Unmarshal(payload, &byThickness); err != nil {
		return priceGroup{}, err
	}
	if len(byThickness) == 0 {
		return priceGroup{}, errors.New("no thickness entries")
	}
	thicknesses := make([]string, 0, len(byThickness))
	for thickness, entries := range byThickness {
		if strings.TrimSpace(thickness) == "" {
			return priceGroup{}, errors.New("empty thickness name")
		}
		if err := validateEntries(entries); err != nil {
			return priceGroup{}, err
		}
		thicknesses = append(thicknesses, thickness)
	}
	sort.Strings(thicknesses)
	return priceGroup{byThickness: byThickness, thicknesses: thicknesses}, nil
}

func validateEntries(entries []PriceEntry) error {
	if len(entries) == 0 {
		return errors.New("empty size list")
	}
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		size := strings.TrimSpace(entry.Size)
		if size == "" {
			return errors.New("empty size descriptor")
		}
		if entry.Price < 0 {
			return fmt.Errorf("negative price for size %q", size)
		}
		if _, dup := seen[size]; dup {
			return fmt.Errorf("duplicate size %q", size)
		}
		seen[size] = struct{}{}
	}
	return nil
}

var defaultCatalog = func() Catalog {
	c, err := Parse(defaultPriceList)
	if err != nil {
		panic(err)
	}
	return c
}()

// Default returns the catalog bundled with the application. The catalog is
// immutable after parse, so all callers share one instance.
func Default() *Catalog {
	return &defaultCatalog
}

// HasThickness reports whether the poster type carries a thickness axis.
func (c Catalog) HasThickness(posterType string) bool {
	group, ok := c.groups[strings.TrimSpace(posterType)]
	return ok && group.byThickness != nil
}

// LookupPrice resolves the unit price for a selection. For flat poster
// types the thickness argument is ignored. For thickness-bearing types a
// missing or unmatched thickness yields a miss; there is no default
// thickness.
func (c Catalog) LookupPrice(posterType, thickness, size string) (int64, bool) {
	group, ok := c.groups[strings.TrimSpace(posterType)]
	if !ok {
		return 0, false
	}

	entries := group.flat
	if group.byThickness != nil {
		entries, ok = group.byThickness[strings.TrimSpace(thickness)]
		if !ok {
			return 0, false
		}
	}

	want := strings.TrimSpace(size)
	for _, entry := range entries {
		if entry.Size == want {
			return entry.Price, true
		}
	}
	return 0, false
}

// PriceOrZero is the total-computation form of LookupPrice: a miss resolves
// to 0 so an incomplete selection prices as nothing rather than failing.
func (c Catalog) PriceOrZero(posterType, thickness, size string) int64 {
	price, _ := c.LookupPrice(posterType, thickness, size)
	return price
}

// ListThicknesses returns the thickness names for a poster type, empty when
// the type has no thickness axis or is unknown.
func (c Catalog) ListThicknesses(posterType string) []string {
	group, ok := c.groups[strings.TrimSpace(posterType)]
	if !ok || group.byThickness == nil {
		return nil
	}
	out := make([]string, len(group.thicknesses))
	copy(out, group.thicknesses)
	return out
}

// ListSizes returns the size entries for a selection in catalog order. For
// thickness-bearing types an unmatched thickness yields nil.
func (c Catalog) ListSizes(posterType, thickness string) []PriceEntry {
	group, ok := c.groups[strings.TrimSpace(posterType)]
	if !ok {
		return nil
	}
	entries := group.flat
	if group.byThickness != nil {
		entries, ok = group.byThickness[strings.TrimSpace(thickness)]
		if !ok {
			return nil
		}
	}
	out := make([]PriceEntry, len(entries))
	copy(out, entries)
	return out
}

// PosterTypes lists the catalog's poster-type names in sorted order.
func (c Catalog) PosterTypes() []string {
	out := make([]string, len(c.types))
	copy(out, c.types)
	return out
}
