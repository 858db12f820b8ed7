package leveling

// Progress describes where an XP total sits on the tier ladder.
// Next and XPToNext are nil on the last tier.
type Progress struct {
	XP       int64   `json:"xp"`
	Current  Tier    `json:"current_tier"`
	Next     *Tier   `json:"next_tier"`
	Percent  float64 `json:"percent_progress"`
	XPToNext *int64  `json:"xp_to_next"`
}

// Progress computes the level progress for xp. It is total: negative values
// land on the first tier at 0%.
func (t *Table) Progress(xp int64) Progress {
	current := t.tierFor(xp)
	p := Progress{XP: xp, Current: current}

	if current.OrderIndex+1 >= len(t.tiers) {
		p.Percent = 100
		return p
	}

	next := t.tiers[current.OrderIndex+1]
	p.Next = &next

	span := float64(next.MinXP - current.MinXP)
	p.Percent = clamp(float64(xp-current.MinXP)/span*100, 0, 100)

	toNext := next.MinXP - xp
	p.XPToNext = &toNext

	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
