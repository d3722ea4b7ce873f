package severity

import (
	"strings"
)

// Severity labels, highest first.
const (
	Critical = "CRITICAL"
	High     = "HIGH"
	Medium   = "MEDIUM"
	Low      = "LOW"
)

// FromRiskScore converts a producer risk score to its display severity.
// Tiers: >= 9 CRITICAL, >= 7 HIGH, >= 4 MEDIUM, otherwise LOW.
func FromRiskScore(score float64) string {
	switch {
	case score >= 9:
		return Critical
	case score >= 7:
		return High
	case score >= 4:
		return Medium
	default:
		return Low
	}
}

// Normalize converts various severity spellings to the canonical labels.
// Unknown values map to LOW.
func Normalize(s string) string {
	normalized := strings.ToUpper(strings.TrimSpace(s))

	switch normalized {
	case "CRITICAL", "CRIT", "CRT", "FATAL", "SEVERE":
		return Critical
	case "HIGH", "HI", "ERROR", "ERR":
		return High
	case "MEDIUM", "MED", "MODERATE", "WARN", "WARNING":
		return Medium
	case "LOW", "INFO", "INFORMATIONAL", "NONE":
		return Low
	default:
		if len(normalized) >= 4 {
			switch normalized[:4] {
			case "CRIT":
				return Critical
			case "HIGH":
				return High
			case "MEDI":
				return Medium
			}
		}
		return Low
	}
}

// Rank orders labels for sorting; higher is more severe.
func Rank(label string) int {
	switch Normalize(label) {
	case Critical:
		return 3
	case High:
		return 2
	case Medium:
		return 1
	default:
		return 0
	}
}
