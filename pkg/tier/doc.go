// Package tier holds the subscription tier catalog: the ordered list of tiers, the
// features each tier unlocks and the daily usage limits per tier.
//
// Tiers are cumulative. Every feature reachable at rank N is reachable at every rank
// above N, and a feature's daily limit never decreases as rank increases. The catalog
// is validated once at construction and is immutable afterwards, so a single instance
// can be shared by any number of goroutines.
//
// Basic usage:
//
//	catalog, err := tier.NewCatalog(
//	    tier.Definition{
//	        Name:     "free",
//	        Features: []string{"basic_ask"},
//	        Limits:   map[string]int64{"ask_questions": 10},
//	    },
//	    tier.Definition{
//	        Name:     "pro",
//	        Features: []string{"custom_pathways"},
//	        Limits:   map[string]int64{"ask_questions": 100},
//	    },
//	)
//	if err != nil {
//	    // invalid configuration, fail at startup
//	}
//
//	catalog.HasAccess("free", "custom_pathways") // false
//	required, _ := catalog.RequiredTier("custom_pathways") // "pro"
//	limit, tracked := catalog.LimitFor("free", "ask_questions") // 10, true
//
// Catalogs can also be loaded from YAML files with NewYAMLSource, see Load.
package tier
