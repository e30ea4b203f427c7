// Package priority scores inbound requests so the admission queue can decide
// what runs first. A request's score combines the owner's subscription tier
// with the request category; the combined score buckets into a Level.
// Scoring is pure: unknown tiers and categories contribute zero weight,
// and no input ever produces an error.
package priority

// Subscription tiers recognized by the scorer.
const (
	TierFree       = "free"
	TierStandard   = "standard"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// Request categories recognized by the scorer. Callers may use their own
// category strings; unrecognized ones score zero unless rules map them.
const (
	CategoryReadHeavy  = "read-heavy"
	CategoryWriteHeavy = "write-heavy"
	CategoryRealTime   = "real-time"
)

// tierWeights orders subscription tiers by how much head-of-line preference
// they buy.
var tierWeights = map[string]int{
	TierFree:       0,
	TierStandard:   10,
	TierPro:        25,
	TierEnterprise: 40,
}

// categoryWeights orders request categories by latency sensitivity.
var categoryWeights = map[string]int{
	CategoryReadHeavy:  5,
	CategoryWriteHeavy: 15,
	CategoryRealTime:   30,
}

// Score combines an owner tier and a request category into a priority score.
// Unknown tiers and categories contribute zero weight.
func Score(tier, category string) int {
	return tierWeights[tier] + categoryWeights[category]
}

// ScoreLevel is a convenience for the common tag-then-bucket flow.
func ScoreLevel(tier, category string) Level {
	return LevelFor(Score(tier, category))
}
