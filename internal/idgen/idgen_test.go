package idgen

import "testing"

func TestNewShapeAndUniqueness(t *testing.T) {
	a := New()
	b := New()
	if len(a) != 24 {
		t.Errorf("len(New()) = %d, want 24", len(a))
	}
	if a == b {
		t.Error("two calls to New() produced the same id")
	}
	for _, r := range a {
		if !isLowerHex(r) {
			t.Errorf("New() contains non-hex rune %q", r)
		}
	}
}

func TestShareableLinkLength(t *testing.T) {
	for _, n := range []int{1, 2, 8, 12, 16, 33} {
		link := ShareableLink(n)
		if len(link) != n {
			t.Errorf("ShareableLink(%d) length = %d, want %d", n, len(link), n)
		}
	}
}

func TestShareableLinkNonPositiveFallsBackToDefault(t *testing.T) {
	if len(ShareableLink(0)) != 12 {
		t.Errorf("ShareableLink(0) length = %d, want 12", len(ShareableLink(0)))
	}
	if len(ShareableLink(-5)) != 12 {
		t.Errorf("ShareableLink(-5) length = %d, want 12", len(ShareableLink(-5)))
	}
}

func isLowerHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}
