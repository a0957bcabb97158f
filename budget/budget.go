// Package budget maps proposal prices onto the fixed budget buckets a job
// can be posted with.
package budget

import "strings"

// Tier is one of the ordered budget buckets.
type Tier int

const (
	VeryLow Tier = iota + 1
	Low
	Medium
	High
	VeryHigh
)

type labels struct {
	english string
	turkish string
}

var tierLabels = map[Tier]labels{
	VeryLow:  {"Very Low", "Çok Düşük"},
	Low:      {"Low", "Düşük"},
	Medium:   {"Medium", "Orta"},
	High:     {"High", "Yüksek"},
	VeryHigh: {"Very High", "Çok Yüksek"},
}

// Tiers returns the buckets in ascending order.
func Tiers() []Tier {
	return []Tier{VeryLow, Low, Medium, High, VeryHigh}
}

func (t Tier) String() string {
	return tierLabels[t].english
}

// Turkish returns the localized label of the tier.
func (t Tier) Turkish() string {
	return tierLabels[t].turkish
}

// Contains reports whether price falls inside the tier. Lower bounds are
// exclusive, upper bounds inclusive, except High whose upper bound is
// exclusive so that 50000 belongs to Very High only.
func (t Tier) Contains(price float64) bool {
	switch t {
	case VeryLow:
		return price > 0 && price <= 1000
	case Low:
		return price > 1000 && price <= 5000
	case Medium:
		return price > 5000 && price <= 15000
	case High:
		return price > 15000 && price < 50000
	case VeryHigh:
		return price >= 50000
	default:
		return false
	}
}

// Lookup resolves an English or Turkish label to its tier.
func Lookup(label string) (Tier, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, false
	}
	for _, t := range Tiers() {
		l := tierLabels[t]
		if strings.EqualFold(label, l.english) || strings.EqualFold(label, l.turkish) {
			return t, true
		}
	}
	return 0, false
}

// WithinBudget reports whether price fits the bucket named by label.
//
// The check is permissive: a missing price, an empty label or a label that
// is not one of the known tiers imposes no constraint and returns true.
func WithinBudget(price *float64, label string) bool {
	if price == nil {
		return true
	}
	tier, ok := Lookup(label)
	if !ok {
		return true
	}
	return tier.Contains(*price)
}
