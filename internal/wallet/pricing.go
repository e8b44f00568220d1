package wallet

import "math"

// Pricing constants for highlight time. All money amounts are BRL cents.
const (
	DaySeconds       = 24 * 60 * 60
	BaseDayPriceBRL  = 10.0
	DayDiscount      = 0.0
	PricePerDayCents = 500
	MinTopupBRL      = 5.0
)

// HumanBalance breaks a seconds balance down for display.
type HumanBalance struct {
	Days    int64
	Hours   int64
	Minutes int64
}

// SecondsToHuman converts a seconds balance into days/hours/minutes.
func SecondsToHuman(total int64) HumanBalance {
	if total < 0 {
		total = 0
	}
	return HumanBalance{
		Days:    total / DaySeconds,
		Hours:   (total % DaySeconds) / 3600,
		Minutes: (total % 3600) / 60,
	}
}

// PerSecondPrice returns the BRL price of one highlight second on the given
// day of a run, rounded to 8 decimal places.
func PerSecondPrice(dayIndex int) float64 {
	dayPrice := BaseDayPriceBRL * math.Pow(1-DayDiscount, float64(dayIndex))
	return math.Round(dayPrice/DaySeconds*1e8) / 1e8
}

// AmountToSeconds converts a paid amount in cents into purchased highlight
// seconds. Always credits at least one second for a settled payment.
func AmountToSeconds(totalCents int64) int64 {
	seconds := int64(math.Round(float64(totalCents) * DaySeconds / PricePerDayCents))
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// BRLToCents converts a BRL amount to integer cents.
func BRLToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CentsToBRL converts integer cents back to a BRL amount.
func CentsToBRL(cents int64) float64 {
	return float64(cents) / 100
}
