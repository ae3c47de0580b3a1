package tier

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Tier is the name of a subscription tier, e.g. "free" or "pro".
type Tier string

func (t Tier) String() string { return string(t) }

// Definition describes one tier of the catalog.
// Features may list only what the tier adds on top of the tiers below it, or the full
// set; the catalog computes the cumulative union either way.
type Definition struct {
	Name        Tier             `yaml:"name"`
	DisplayName string           `yaml:"display_name"`
	Features    []string         `yaml:"features"`
	Limits      map[string]int64 `yaml:"limits"` // daily caps; absent = untracked
}

// Catalog is the validated, immutable tier configuration.
type Catalog struct {
	tiers    []Tier
	display  map[Tier]string
	ranks    map[Tier]int
	features []map[string]struct{} // cumulative, indexed by rank
	sorted   [][]string            // features, sorted, indexed by rank
	limits   []map[string]int64    // indexed by rank
	required map[string]Tier       // lowest tier unlocking each feature
}

// NewCatalog validates the definitions, given in ascending rank order, and precomputes
// the cumulative feature table. Any violation is reported wrapped in ErrInvalidCatalog.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, errors.Join(ErrInvalidCatalog, errors.New("catalog has no tiers"))
	}

	c := &Catalog{
		tiers:    make([]Tier, 0, len(defs)),
		display:  make(map[Tier]string, len(defs)),
		ranks:    make(map[Tier]int, len(defs)),
		features: make([]map[string]struct{}, len(defs)),
		sorted:   make([][]string, len(defs)),
		limits:   make([]map[string]int64, len(defs)),
		required: make(map[string]Tier),
	}

	cumulative := make(map[string]struct{})
	for rank, def := range defs {
		if def.Name == "" {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("tier at rank %d has no name", rank))
		}
		if _, dup := c.ranks[def.Name]; dup {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("duplicate tier %q", def.Name))
		}
		c.ranks[def.Name] = rank
		c.tiers = append(c.tiers, def.Name)
		c.display[def.Name] = def.DisplayName
		if c.display[def.Name] == "" {
			c.display[def.Name] = string(def.Name)
		}

		for _, f := range def.Features {
			if f == "" {
				return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("tier %q lists an empty feature name", def.Name))
			}
			if _, seen := cumulative[f]; !seen {
				cumulative[f] = struct{}{}
				c.required[f] = def.Name
			}
		}
		c.features[rank] = maps.Clone(cumulative)
		c.sorted[rank] = slices.Sorted(maps.Keys(cumulative))

		for name, limit := range def.Limits {
			if name == "" {
				return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("tier %q has a limit with an empty name", def.Name))
			}
			if limit < 0 {
				return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("tier %q has negative limit %d for %q", def.Name, limit, name))
			}
		}
		c.limits[rank] = maps.Clone(def.Limits)
		if c.limits[rank] == nil {
			c.limits[rank] = make(map[string]int64)
		}
	}

	if err := c.validateLimits(); err != nil {
		return nil, err
	}

	return c, nil
}

// validateLimits enforces non-decreasing limits along the rank order. A missing entry
// means unlimited, so a limit may disappear going up but never appear.
func (c *Catalog) validateLimits() error {
	for rank := 1; rank < len(c.tiers); rank++ {
		lower, upper := c.limits[rank-1], c.limits[rank]
		for name, upperLimit := range upper {
			lowerLimit, tracked := lower[name]
			if !tracked {
				return errors.Join(ErrInvalidCatalog,
					fmt.Errorf("%q is unlimited at tier %q but limited at higher tier %q", name, c.tiers[rank-1], c.tiers[rank]))
			}
			if upperLimit < lowerLimit {
				return errors.Join(ErrInvalidCatalog,
					fmt.Errorf("%q limit decreases from %d at tier %q to %d at tier %q",
						name, lowerLimit, c.tiers[rank-1], upperLimit, c.tiers[rank]))
			}
		}
	}
	return nil
}

// Tiers returns the tier names in ascending rank order.
func (c *Catalog) Tiers() []Tier {
	return slices.Clone(c.tiers)
}

// Lowest returns the default tier, assigned to users without an active subscription.
func (c *Catalog) Lowest() Tier {
	return c.tiers[0]
}

// Highest returns the top tier.
func (c *Catalog) Highest() Tier {
	return c.tiers[len(c.tiers)-1]
}

// Has reports whether t is a configured tier.
func (c *Catalog) Has(t Tier) bool {
	_, ok := c.ranks[t]
	return ok
}

// Rank returns the zero-based rank of t.
func (c *Catalog) Rank(t Tier) (int, bool) {
	rank, ok := c.ranks[t]
	return rank, ok
}

// Next returns the tier directly above t.
func (c *Catalog) Next(t Tier) (Tier, bool) {
	rank, ok := c.ranks[t]
	if !ok || rank+1 >= len(c.tiers) {
		return "", false
	}
	return c.tiers[rank+1], true
}

// DisplayName returns the human readable tier name, falling back to the tier itself.
func (c *Catalog) DisplayName(t Tier) string {
	if name, ok := c.display[t]; ok {
		return name
	}
	return string(t)
}

// FeaturesFor returns the sorted cumulative feature set of t.
// Unknown tiers have no features.
func (c *Catalog) FeaturesFor(t Tier) []string {
	rank, ok := c.ranks[t]
	if !ok {
		return []string{}
	}
	return slices.Clone(c.sorted[rank])
}

// HasAccess reports whether feature is reachable at tier t.
func (c *Catalog) HasAccess(t Tier, feature string) bool {
	rank, ok := c.ranks[t]
	if !ok {
		return false
	}
	_, ok = c.features[rank][feature]
	return ok
}

// RequiredTier returns the lowest tier that unlocks feature.
// It returns false when no tier lists the feature at all.
func (c *Catalog) RequiredTier(feature string) (Tier, bool) {
	t, ok := c.required[feature]
	return t, ok
}

// Known reports whether any tier unlocks feature.
func (c *Catalog) Known(feature string) bool {
	_, ok := c.required[feature]
	return ok
}

// Metered reports whether any tier caps feature.
func (c *Catalog) Metered(feature string) bool {
	for _, limits := range c.limits {
		if _, ok := limits[feature]; ok {
			return true
		}
	}
	return false
}

// LimitFor returns the daily cap on feature at tier t.
// It returns false when the feature is untracked at that tier or the tier is unknown.
func (c *Catalog) LimitFor(t Tier, feature string) (int64, bool) {
	rank, ok := c.ranks[t]
	if !ok {
		return 0, false
	}
	limit, ok := c.limits[rank][feature]
	return limit, ok
}

// Limits returns a copy of the daily limit table of t.
func (c *Catalog) Limits(t Tier) map[string]int64 {
	rank, ok := c.ranks[t]
	if !ok {
		return map[string]int64{}
	}
	return maps.Clone(c.limits[rank])
}

// AllLimits returns the limit table of every tier.
func (c *Catalog) AllLimits() map[Tier]map[string]int64 {
	out := make(map[Tier]map[string]int64, len(c.tiers))
	for rank, t := range c.tiers {
		out[t] = maps.Clone(c.limits[rank])
	}
	return out
}
