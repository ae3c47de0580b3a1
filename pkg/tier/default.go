package tier

// Built-in tiers.
const (
	Free    Tier = "free"
	Premium Tier = "premium"
	Pro     Tier = "pro"
)

// effectivelyUnlimited is the cap used for features that are "unlimited" on a tier but
// still metered, so usage keeps showing up in summaries.
const effectivelyUnlimited int64 = 100000

// DefaultDefinitions returns the built-in product catalog.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name:        Free,
			DisplayName: "Free",
			Features: []string{
				"basic_ask",
				"basic_journal",
				"basic_quest",
				"basic_explore",
				"basic_forum",
			},
			Limits: map[string]int64{
				"ask_questions":     10,
				"journal_entries":   5,
				"quest_daily":       1,
				"forum_threads":     3,
				"forum_comments":    10,
				"forum_votes":       20,
				"insight_expansion": 0,
				"save_to_journal":   5,
				"concept_tagging":   3,
				"media_attachments": 2,
			},
		},
		{
			Name:        Premium,
			DisplayName: "Premium",
			Features: []string{
				"advanced_ask",
				"unlimited_journal",
				"advanced_quest",
				"advanced_explore",
				"advanced_forum",
				"extended_responses",
				"insight_expansion",
				"advanced_visualization",
			},
			Limits: map[string]int64{
				"ask_questions":     50,
				"journal_entries":   effectivelyUnlimited,
				"quest_daily":       3,
				"forum_threads":     10,
				"forum_comments":    30,
				"forum_votes":       50,
				"insight_expansion": 5,
				"save_to_journal":   25,
				"concept_tagging":   10,
				"media_attachments": 5,
			},
		},
		{
			Name:        Pro,
			DisplayName: "Pro",
			Features: []string{
				"unlimited_ask",
				"custom_pathways",
				"premium_ai_models",
				"exclusive_content",
				"unlimited_export",
			},
			Limits: map[string]int64{
				"ask_questions":     effectivelyUnlimited,
				"journal_entries":   effectivelyUnlimited,
				"quest_daily":       5,
				"forum_threads":     effectivelyUnlimited,
				"forum_comments":    effectivelyUnlimited,
				"forum_votes":       effectivelyUnlimited,
				"insight_expansion": effectivelyUnlimited,
				"save_to_journal":   effectivelyUnlimited,
				"concept_tagging":   effectivelyUnlimited,
				"media_attachments": effectivelyUnlimited,
			},
		},
	}
}

// Default returns the built-in catalog. It panics if the built-in definitions are invalid.
func Default() *Catalog {
	c, err := NewCatalog(DefaultDefinitions()...)
	if err != nil {
		panic("tier: invalid built-in catalog: " + err.Error())
	}
	return c
}
