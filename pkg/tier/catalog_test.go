package tier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featuregate/pkg/tier"
)

func TestNewCatalog(t *testing.T) {
	t.Parallel()

	t.Run("default catalog is valid", func(t *testing.T) {
		t.Parallel()

		c, err := tier.NewCatalog(tier.DefaultDefinitions()...)
		require.NoError(t, err)
		assert.Equal(t, []tier.Tier{tier.Free, tier.Premium, tier.Pro}, c.Tiers())
		assert.Equal(t, tier.Free, c.Lowest())
		assert.Equal(t, tier.Pro, c.Highest())
	})

	tests := []struct {
		name string
		defs []tier.Definition
	}{
		{
			name: "no tiers",
			defs: nil,
		},
		{
			name: "empty tier name",
			defs: []tier.Definition{{Name: ""}},
		},
		{
			name: "duplicate tier",
			defs: []tier.Definition{{Name: "free"}, {Name: "free"}},
		},
		{
			name: "empty feature name",
			defs: []tier.Definition{{Name: "free", Features: []string{""}}},
		},
		{
			name: "negative limit",
			defs: []tier.Definition{{Name: "free", Limits: map[string]int64{"ask": -1}}},
		},
		{
			name: "decreasing limit",
			defs: []tier.Definition{
				{Name: "free", Limits: map[string]int64{"ask": 10}},
				{Name: "pro", Limits: map[string]int64{"ask": 5}},
			},
		},
		{
			name: "limit appears at a higher tier",
			defs: []tier.Definition{
				{Name: "free"},
				{Name: "pro", Limits: map[string]int64{"ask": 5}},
			},
		},
		{
			name: "limit disappears then reappears",
			defs: []tier.Definition{
				{Name: "free", Limits: map[string]int64{"ask": 1}},
				{Name: "premium"},
				{Name: "pro", Limits: map[string]int64{"ask": 5}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := tier.NewCatalog(tt.defs...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tier.ErrInvalidCatalog)
			assert.Nil(t, c)
		})
	}

	t.Run("limit may become unlimited at a higher tier", func(t *testing.T) {
		t.Parallel()

		c, err := tier.NewCatalog(
			tier.Definition{Name: "free", Limits: map[string]int64{"ask": 1}},
			tier.Definition{Name: "pro"},
		)
		require.NoError(t, err)

		_, tracked := c.LimitFor("pro", "ask")
		assert.False(t, tracked)
	})

	t.Run("definitions are copied", func(t *testing.T) {
		t.Parallel()

		defs := []tier.Definition{{Name: "free", Features: []string{"a"}, Limits: map[string]int64{"x": 1}}}
		c, err := tier.NewCatalog(defs...)
		require.NoError(t, err)

		defs[0].Features[0] = "b"
		defs[0].Limits["x"] = 99

		assert.True(t, c.HasAccess("free", "a"))
		limit, _ := c.LimitFor("free", "x")
		assert.Equal(t, int64(1), limit)
	})
}

func TestCatalog_CumulativeTiers(t *testing.T) {
	t.Parallel()

	c := tier.Default()
	tiers := c.Tiers()

	for i := range tiers {
		for j := i + 1; j < len(tiers); j++ {
			lower, upper := tiers[i], tiers[j]

			assert.Subset(t, c.FeaturesFor(upper), c.FeaturesFor(lower),
				"features of %s must be a subset of %s", lower, upper)

			for feature, lowerLimit := range c.Limits(lower) {
				upperLimit, tracked := c.LimitFor(upper, feature)
				if !tracked {
					continue
				}
				assert.LessOrEqual(t, lowerLimit, upperLimit,
					"%s limit at %s must not exceed %s", feature, lower, upper)
			}
		}
	}
}

func TestCatalog_HasAccess(t *testing.T) {
	t.Parallel()

	c := tier.Default()

	t.Run("basic feature at every tier", func(t *testing.T) {
		t.Parallel()

		for _, tr := range c.Tiers() {
			assert.True(t, c.HasAccess(tr, "basic_ask"), tr)
		}
	})

	t.Run("pro only feature", func(t *testing.T) {
		t.Parallel()

		assert.False(t, c.HasAccess(tier.Free, "custom_pathways"))
		assert.False(t, c.HasAccess(tier.Premium, "custom_pathways"))
		assert.True(t, c.HasAccess(tier.Pro, "custom_pathways"))
	})

	t.Run("unknown tier has nothing", func(t *testing.T) {
		t.Parallel()

		assert.False(t, c.HasAccess("platinum", "basic_ask"))
		assert.Empty(t, c.FeaturesFor("platinum"))
		assert.Empty(t, c.Limits("platinum"))
		_, tracked := c.LimitFor("platinum", "ask_questions")
		assert.False(t, tracked)
	})
}

func TestCatalog_RequiredTier(t *testing.T) {
	t.Parallel()

	c := tier.Default()

	required, ok := c.RequiredTier("custom_pathways")
	require.True(t, ok)
	assert.Equal(t, tier.Pro, required)

	required, ok = c.RequiredTier("insight_expansion")
	require.True(t, ok)
	assert.Equal(t, tier.Premium, required)

	required, ok = c.RequiredTier("basic_ask")
	require.True(t, ok)
	assert.Equal(t, tier.Free, required)

	_, ok = c.RequiredTier("teleportation")
	assert.False(t, ok)
	assert.False(t, c.Known("teleportation"))
}

func TestCatalog_LimitFor(t *testing.T) {
	t.Parallel()

	c := tier.Default()

	limit, tracked := c.LimitFor(tier.Free, "ask_questions")
	require.True(t, tracked)
	assert.Equal(t, int64(10), limit)

	limit, tracked = c.LimitFor(tier.Free, "insight_expansion")
	require.True(t, tracked)
	assert.Zero(t, limit)

	_, tracked = c.LimitFor(tier.Free, "basic_ask")
	assert.False(t, tracked)

	assert.True(t, c.Metered("ask_questions"))
	assert.False(t, c.Metered("basic_ask"))
	assert.False(t, c.Metered("teleportation"))
}

func TestCatalog_Navigation(t *testing.T) {
	t.Parallel()

	c := tier.Default()

	next, ok := c.Next(tier.Free)
	require.True(t, ok)
	assert.Equal(t, tier.Premium, next)

	_, ok = c.Next(tier.Pro)
	assert.False(t, ok)

	rank, ok := c.Rank(tier.Premium)
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	assert.True(t, c.Has(tier.Pro))
	assert.False(t, c.Has("platinum"))
	assert.Equal(t, "Premium", c.DisplayName(tier.Premium))
	assert.Equal(t, "platinum", c.DisplayName("platinum"))
	assert.Len(t, c.AllLimits(), 3)
}
