package types

import (
	"testing"

	"timbercalc/internal/errors"
)

func TestPriceKeyString(t *testing.T) {
	tests := []struct {
		name   string
		rng    GirthRange
		length float64
		want   string
	}{
		{"whole numbers", GirthRange{0, 18}, 5.0, "G_0.0-18.0_L_5.0"},
		{"fractional bounds", GirthRange{18, 20.5}, 12.25, "G_18.0-20.5_L_12.3"},
		{"half-up on shortest repr", GirthRange{0.05, 1}, 8, "G_0.1-1.0_L_8.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPriceKey(tt.rng, tt.length).String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParsePriceKeyRoundTrip(t *testing.T) {
	key := NewPriceKey(GirthRange{0, 18}, 5.0)

	parsed, err := ParsePriceKey(key.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != key {
		t.Errorf("round trip mismatch: %+v != %+v", parsed, key)
	}
	if !parsed.Range().Equal(GirthRange{0, 18}) {
		t.Errorf("unexpected range %v", parsed.Range())
	}
	if parsed.Length() != 5.0 {
		t.Errorf("unexpected length %v", parsed.Length())
	}
}

func TestParsePriceKeyRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "G_0-18", "G_a-b_L_c", "X_0.0-18.0_L_5.0"} {
		if _, err := ParsePriceKey(s); !errors.IsType(err, errors.TypeParsing) {
			t.Errorf("%q: expected parsing error, got %v", s, err)
		}
	}
}

func TestGirthRangeContains(t *testing.T) {
	first := GirthRange{0, 18}
	second := GirthRange{18, 20}

	tests := []struct {
		rng   GirthRange
		girth float64
		want  bool
	}{
		{first, 0, true},
		{first, 18, true},
		{first, 18.01, false},
		{second, 18, false},
		{second, 18.01, true},
		{second, 20, true},
	}

	for _, tt := range tests {
		if got := tt.rng.Contains(tt.girth); got != tt.want {
			t.Errorf("%v.Contains(%v) = %v, want %v", tt.rng, tt.girth, got, tt.want)
		}
	}
}

func TestGirthRangeEqualUsesTolerance(t *testing.T) {
	if !(GirthRange{0, 18}).Equal(GirthRange{0.0005, 18.0009}) {
		t.Error("ranges within tolerance should be equal")
	}
	if (GirthRange{0, 18}).Equal(GirthRange{0, 18.01}) {
		t.Error("ranges outside tolerance should differ")
	}
}

func TestNewEventStampsIdentity(t *testing.T) {
	a := NewEvent(EventBillCleared, "bill", nil)
	b := NewEvent(EventBillCleared, "bill", nil)
	if a.ID == b.ID {
		t.Error("events should get distinct IDs")
	}
	if a.OccurredAt.IsZero() {
		t.Error("event time not set")
	}
}
