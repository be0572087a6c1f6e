package dedupe

import (
	"fmt"
	"strings"

	"github.com/corpradar/backend/internal/models"
)

// Strategy decides whether two normalized items describe the same story.
type Strategy interface {
	AreDuplicates(a, b models.NormalizedNewsItem) bool
}

// Keyer is implemented by strategies whose duplicate relation is "shares at
// least one key". The engine then groups through a key index instead of
// comparing every pair.
type Keyer interface {
	Keys(item models.NormalizedNewsItem) []string
}

const (
	urlKeyPrefix   = "url:"
	titleKeyPrefix = "title:"
)

// Exact treats items as duplicates when their canonical URLs or their
// normalized titles are equal.
type Exact struct{}

// AreDuplicates implements Strategy.
func (Exact) AreDuplicates(a, b models.NormalizedNewsItem) bool {
	if a.HasCanonicalURL() && a.CanonicalURL == b.CanonicalURL {
		return true
	}
	return a.TitleNorm != "" && a.TitleNorm == b.TitleNorm
}

// Keys implements Keyer.
func (Exact) Keys(item models.NormalizedNewsItem) []string {
	keys := make([]string, 0, 2)
	if item.HasCanonicalURL() {
		keys = append(keys, urlKeyPrefix+item.CanonicalURL)
	}
	if item.TitleNorm != "" {
		keys = append(keys, titleKeyPrefix+item.TitleNorm)
	}
	return keys
}

// Strength is the dedup strength requested by the tool layer.
type Strength string

const (
	StrengthLow    Strength = "low"
	StrengthMedium Strength = "medium"
	StrengthHigh   Strength = "high"
)

// ParseStrength accepts low/medium/high; empty means medium.
func ParseStrength(raw string) (Strength, error) {
	switch s := Strength(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return StrengthMedium, nil
	case StrengthLow, StrengthMedium, StrengthHigh:
		return s, nil
	default:
		return "", fmt.Errorf("unknown dedup strength %q", raw)
	}
}

// StrategyFor returns the strategy backing a strength level. Only exact
// matching exists today, so every level resolves to Exact.
func StrategyFor(Strength) Strategy {
	return Exact{}
}
