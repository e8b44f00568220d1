package telegram

import "testing"

func TestExtractCode(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"start deep link", "/start verify_GMR-AB2C3", "GMR-AB2C3"},
		{"verify command", "/verify GMR-AB2C3", "GMR-AB2C3"},
		{"bare code", "here is my code GMR-AB2C3 thanks", "GMR-AB2C3"},
		{"lowercase", "gmr-ab2c3", "GMR-AB2C3"},
		{"no code", "hello bot", ""},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		if got := extractCode(tc.text); got != tc.want {
			t.Fatalf("%s: extractCode(%q) = %q, expected %q", tc.name, tc.text, got, tc.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := normalizePhone("+55 (11) 91234-5678"); got != "5511912345678" {
		t.Fatalf("expected digits only, got %q", got)
	}
	if got := normalizePhone("no digits"); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestMatchesPhone(t *testing.T) {
	// Telegram reports numbers without the plus or local prefixes, so a
	// suffix match in either direction counts as the same phone.
	if !matchesPhone("5511912345678", "5511912345678") {
		t.Fatal("identical numbers should match")
	}
	if !matchesPhone("5511912345678", "11912345678") {
		t.Fatal("suffix should match")
	}
	if !matchesPhone("11912345678", "5511912345678") {
		t.Fatal("suffix should match in both directions")
	}
	if matchesPhone("5511912345678", "5511987654321") {
		t.Fatal("different numbers should not match")
	}
	if matchesPhone("", "5511912345678") {
		t.Fatal("empty numbers never match")
	}
}
