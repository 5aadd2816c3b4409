package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Resolve(t *testing.T) {
	t.Parallel()

	table, err := Default()
	require.NoError(t, err)
	assert.Equal(t, []string{"Veritas Glow", "Veritas Sculpt", "Veritas Prestige"}, table.Tiers())

	tests := []struct {
		name  string
		input string
		tier  string
		ok    bool
	}{
		{name: "tier name", input: "Veritas Glow", tier: "Veritas Glow", ok: true},
		{name: "display name", input: "Glow & Hydrate", tier: "Veritas Glow", ok: true},
		{name: "display name sculpt", input: "Lift & Reshape", tier: "Veritas Sculpt", ok: true},
		{name: "case insensitive", input: "correct & renew", tier: "Veritas Prestige", ok: true},
		{name: "unknown", input: "Veritas Gold", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, ok := table.Resolve(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.tier, p.Tier)
				assert.True(t, p.Price.IsPositive())
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: "plans: []"},
		{name: "bad price", doc: "plans:\n  - tier: A\n    price: abc\n"},
		{name: "negative price", doc: "plans:\n  - tier: A\n    price: \"-1\"\n"},
		{name: "duplicate", doc: "plans:\n  - tier: A\n    price: \"1\"\n  - tier: a\n    price: \"2\"\n"},
		{name: "not yaml", doc: "plans: [:"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
