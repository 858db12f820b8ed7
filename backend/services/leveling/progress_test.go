package leveling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]Tier{
		{ID: "novice", Name: "Novice", MinXP: 0},
		{ID: "founder", Name: "Founder", MinXP: 1000},
		{ID: "visionary", Name: "Visionary", MinXP: 5000},
	})
	require.NoError(t, err)
	return table
}

func TestProgressAtTierBoundary(t *testing.T) {
	p := scenarioTable(t).Progress(1000)

	assert.Equal(t, "founder", p.Current.ID)
	require.NotNil(t, p.Next)
	assert.Equal(t, "visionary", p.Next.ID)
	assert.Equal(t, 0.0, p.Percent)
	require.NotNil(t, p.XPToNext)
	assert.Equal(t, int64(4000), *p.XPToNext)
}

func TestProgressInterpolates(t *testing.T) {
	p := scenarioTable(t).Progress(3000)

	assert.Equal(t, "founder", p.Current.ID)
	assert.InDelta(t, 50.0, p.Percent, 1e-9)
	assert.Equal(t, int64(2000), *p.XPToNext)
}

func TestProgressLastTier(t *testing.T) {
	table := scenarioTable(t)

	for _, xp := range []int64{5000, 5001, 1 << 40} {
		p := table.Progress(xp)
		assert.Equal(t, "visionary", p.Current.ID)
		assert.Nil(t, p.Next)
		assert.Nil(t, p.XPToNext)
		assert.Equal(t, 100.0, p.Percent)
	}
}

func TestProgressBoundsAndInclusiveThresholds(t *testing.T) {
	table := DefaultTable()
	tiers := table.Tiers()

	for xp := int64(0); xp <= 6000; xp += 7 {
		p := table.Progress(xp)
		assert.GreaterOrEqual(t, p.Percent, 0.0)
		assert.LessOrEqual(t, p.Percent, 100.0)
	}

	for _, tier := range tiers {
		assert.Equal(t, tier.ID, table.Progress(tier.MinXP).Current.ID)
		if tier.MinXP > 0 {
			assert.NotEqual(t, tier.ID, table.Progress(tier.MinXP-1).Current.ID)
		}
	}
}

func TestProgressNegativeXPClampsToZero(t *testing.T) {
	p := scenarioTable(t).Progress(-50)

	assert.Equal(t, "novice", p.Current.ID)
	assert.Equal(t, 0.0, p.Percent)
}

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		name    string
		tiers   []Tier
		wantErr error
	}{
		{name: "empty", tiers: nil, wantErr: ErrEmptyTable},
		{name: "first tier above zero", tiers: []Tier{{ID: "a", MinXP: 10}}, wantErr: ErrFirstTierNotZero},
		{name: "duplicate threshold", tiers: []Tier{{ID: "a"}, {ID: "b", MinXP: 0}}, wantErr: ErrUnorderedTiers},
		{name: "descending", tiers: []Tier{{ID: "a"}, {ID: "b", MinXP: 50}, {ID: "c", MinXP: 20}}, wantErr: ErrUnorderedTiers},
		{name: "valid", tiers: []Tier{{ID: "a"}, {ID: "b", MinXP: 50, OrderIndex: 9}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewTable(tt.tiers)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, table.Tiers()[1].OrderIndex)
		})
	}
}

func TestTierLookup(t *testing.T) {
	table := DefaultTable()

	tier, ok := table.Tier("founder")
	assert.True(t, ok)
	assert.Equal(t, int64(1000), tier.MinXP)

	_, ok = table.Tier("unknown")
	assert.False(t, ok)
}
