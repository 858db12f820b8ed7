// Package leveling maps cumulative XP onto the ordered tier table.
package leveling

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrEmptyTable       = errors.New("tier table is empty")
	ErrFirstTierNotZero = errors.New("first tier must start at 0 XP")
	ErrUnorderedTiers   = errors.New("tier thresholds must be strictly increasing")
)

// Tier is a named level unlocked at a cumulative XP threshold.
type Tier struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MinXP      int64  `json:"min_xp"`
	OrderIndex int    `json:"order_index"`
}

// Table is an immutable, ascending list of tiers.
type Table struct {
	tiers []Tier
}

// NewTable validates tiers and fixes OrderIndex to each tier's position.
// The input must already be sorted by MinXP.
func NewTable(tiers []Tier) (*Table, error) {
	if len(tiers) == 0 {
		return nil, ErrEmptyTable
	}
	if tiers[0].MinXP != 0 {
		return nil, ErrFirstTierNotZero
	}

	out := make([]Tier, len(tiers))
	for i, t := range tiers {
		if i > 0 && t.MinXP <= tiers[i-1].MinXP {
			return nil, fmt.Errorf("%w: %q (%d) after %q (%d)",
				ErrUnorderedTiers, t.ID, t.MinXP, tiers[i-1].ID, tiers[i-1].MinXP)
		}
		t.OrderIndex = i
		out[i] = t
	}

	return &Table{tiers: out}, nil
}

// DefaultTable returns the platform's tier ladder.
func DefaultTable() *Table {
	t, err := NewTable([]Tier{
		{ID: "novice", Name: "Novice", MinXP: 0},
		{ID: "apprentice", Name: "Apprentice", MinXP: 250},
		{ID: "founder", Name: "Founder", MinXP: 1000},
		{ID: "innovator", Name: "Innovator", MinXP: 2500},
		{ID: "visionary", Name: "Visionary", MinXP: 5000},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// Tiers returns a copy of the ordered tiers.
func (t *Table) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Tier looks a tier up by ID.
func (t *Table) Tier(id string) (Tier, bool) {
	for _, tier := range t.tiers {
		if tier.ID == id {
			return tier, true
		}
	}
	return Tier{}, false
}

// tierFor returns the tier with the greatest MinXP <= xp.
func (t *Table) tierFor(xp int64) Tier {
	// index of the first tier strictly above xp
	i := sort.Search(len(t.tiers), func(i int) bool {
		return t.tiers[i].MinXP > xp
	})
	if i == 0 {
		return t.tiers[0]
	}
	return t.tiers[i-1]
}
