package service

import (
	"strings"

	"github.com/techcodes/backend/internal/models"
)

var (
	tapNapKeywords    = []string{"nap lleno", "tap lleno"}
	mcoKeywords       = []string{"nivel", "reversa", "mer", "ber", "snr", "hum", "tap", "sin señal", "poste", "fibra"}
	recablingKeywords = []string{"cable", "acometida", "drop"}
)

// Classify maps an escalation reason to a category. Rules are checked in
// order and the first match wins, so "tap lleno" never falls into MCO.
func Classify(reason string) models.Category {
	v := strings.ToLower(reason)
	switch {
	case containsAny(v, tapNapKeywords):
		return models.CategoryTapNap
	case containsAny(v, mcoKeywords):
		return models.CategoryMCO
	case containsAny(v, recablingKeywords):
		return models.CategoryRecabling
	default:
		return models.CategoryOther
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
