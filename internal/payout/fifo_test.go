package payout

import "testing"

func TestApportionRatiosDrainsOldestFirst(t *testing.T) {
	topups := []TopupEvent{
		{CheckoutSessionID: "cs_a", Seconds: 1000},
		{CheckoutSessionID: "cs_b", Seconds: 2000},
	}

	ratios := ApportionRatios(topups, 1500)

	if ratios["cs_a"] != 1.0 {
		t.Fatalf("oldest topup should be fully consumed, got %v", ratios["cs_a"])
	}
	if ratios["cs_b"] != 0.25 {
		t.Fatalf("second topup should be quarter consumed, got %v", ratios["cs_b"])
	}
}

func TestApportionRatiosClampsOverConsumption(t *testing.T) {
	topups := []TopupEvent{
		{CheckoutSessionID: "cs_a", Seconds: 100},
		{CheckoutSessionID: "cs_b", Seconds: 100},
	}

	// Consumption beyond the purchased total never produces ratios above 1.
	ratios := ApportionRatios(topups, 10_000)

	for session, ratio := range ratios {
		if ratio != 1.0 {
			t.Fatalf("expected ratio 1.0 for %s, got %v", session, ratio)
		}
	}
}

func TestApportionRatiosNegativeConsumption(t *testing.T) {
	topups := []TopupEvent{
		{CheckoutSessionID: "cs_a", Seconds: 100},
	}

	ratios := ApportionRatios(topups, -5)

	if ratios["cs_a"] != 0 {
		t.Fatalf("expected ratio 0, got %v", ratios["cs_a"])
	}
}

func TestApportionRatiosAggregatesRepeatedSessions(t *testing.T) {
	// The same session can appear twice when a webhook retried mid-migration;
	// both credits pool under one session in first-seen order.
	topups := []TopupEvent{
		{CheckoutSessionID: "cs_a", Seconds: 500},
		{CheckoutSessionID: "cs_b", Seconds: 1000},
		{CheckoutSessionID: "cs_a", Seconds: 500},
	}

	ratios := ApportionRatios(topups, 1000)

	if ratios["cs_a"] != 1.0 {
		t.Fatalf("expected pooled cs_a fully consumed, got %v", ratios["cs_a"])
	}
	if ratios["cs_b"] != 0 {
		t.Fatalf("expected cs_b untouched, got %v", ratios["cs_b"])
	}
}

func TestApportionRatiosSkipsInvalidEvents(t *testing.T) {
	topups := []TopupEvent{
		{CheckoutSessionID: "", Seconds: 100},
		{CheckoutSessionID: "cs_a", Seconds: 0},
	}

	ratios := ApportionRatios(topups, 100)

	if len(ratios) != 0 {
		t.Fatalf("expected no sessions in result, got %d entries", len(ratios))
	}
}
