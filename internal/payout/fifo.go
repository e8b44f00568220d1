package payout

// Method tags the apportionment algorithm version so stored summaries can be
// told apart after schema evolution.
const Method = "wallet-consume-fifo-v1"

// TopupEvent is one wallet credit tied to a checkout session, in the order
// the payer made them.
type TopupEvent struct {
	CheckoutSessionID string
	Seconds           int64
}

// ApportionRatios replays a payer's topups oldest-first against their total
// consumed seconds. Oldest money is spent first: each session's pool is
// drained before any consumption is attributed to the next one. The returned
// ratio per session is consumed/purchased, clamped to [0,1].
func ApportionRatios(topups []TopupEvent, consumedSeconds int64) map[string]float64 {
	ordered := make([]string, 0, len(topups))
	secondsBySession := make(map[string]int64, len(topups))
	for _, event := range topups {
		if event.CheckoutSessionID == "" || event.Seconds <= 0 {
			continue
		}
		if _, seen := secondsBySession[event.CheckoutSessionID]; !seen {
			ordered = append(ordered, event.CheckoutSessionID)
		}
		secondsBySession[event.CheckoutSessionID] += event.Seconds
	}

	remaining := consumedSeconds
	if remaining < 0 {
		remaining = 0
	}

	ratios := make(map[string]float64, len(ordered))
	for _, session := range ordered {
		total := secondsBySession[session]
		if total <= 0 {
			ratios[session] = 0
			continue
		}
		consumed := remaining
		if consumed > total {
			consumed = total
		}
		ratio := float64(consumed) / float64(total)
		if ratio < 0 {
			ratio = 0
		}
		if ratio > 1 {
			ratio = 1
		}
		ratios[session] = ratio
		remaining -= consumed
		if remaining < 0 {
			remaining = 0
		}
	}
	return ratios
}
