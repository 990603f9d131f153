package detector

import (
	"strings"

	"github.com/liamashdown/insiderdetector/internal/config"
)

// AlertLevel is the coarse classification of a total score
type AlertLevel string

const (
	LevelLow      AlertLevel = "LOW"
	LevelMedium   AlertLevel = "MEDIUM"
	LevelHigh     AlertLevel = "HIGH"
	LevelCritical AlertLevel = "CRITICAL"
)

var levelRank = map[AlertLevel]int{
	LevelLow:      0,
	LevelMedium:   1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// AtLeast reports whether l is the same as or above other
func (l AlertLevel) AtLeast(other AlertLevel) bool {
	return levelRank[l] >= levelRank[other]
}

// ParseAlertLevel parses a level name, defaulting to LOW for unknown input
func ParseAlertLevel(s string) AlertLevel {
	level := AlertLevel(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelRank[level]; ok {
		return level
	}
	return LevelLow
}

// Tier maps a minimum score to a level
type Tier struct {
	Level    AlertLevel
	MinScore int
}

// LevelClassifier maps scores to levels using tiers ordered highest first
type LevelClassifier struct {
	tiers    []Tier
	fallback AlertLevel
}

// NewLevelClassifier builds the tiers from the detection thresholds
func NewLevelClassifier(d config.Detection) *LevelClassifier {
	return &LevelClassifier{
		tiers: []Tier{
			{Level: LevelCritical, MinScore: d.CriticalScore},
			{Level: LevelHigh, MinScore: d.HighPriorityScore},
			{Level: LevelMedium, MinScore: d.MinAlertScore},
		},
		fallback: LevelLow,
	}
}

// Classify returns the first tier whose minimum the score reaches
func (c *LevelClassifier) Classify(score int) AlertLevel {
	for _, tier := range c.tiers {
		if score >= tier.MinScore {
			return tier.Level
		}
	}
	return c.fallback
}
