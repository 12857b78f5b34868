package market

import (
	"math/big"
	"testing"
)

func TestToBaseUnits(t *testing.T) {
	t.Parallel()
	cases := []struct {
		price    string
		decimals int32
		want     string
	}{
		{"10.50", 18, "10500000000000000000"},
		{"1", 18, "1000000000000000000"},
		{"0", 18, "0"},
		{"0.000000000000000001", 18, "1"},
		{"2.5", 2, "250"},
		{"100", 0, "100"},
	}
	for _, c := range cases {
		got, err := ToBaseUnits(c.price, c.decimals)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q, %d): %v", c.price, c.decimals, err)
		}
		if got.String() != c.want {
			t.Fatalf("ToBaseUnits(%q, %d) = %s, want %s", c.price, c.decimals, got, c.want)
		}
	}
}

func TestToBaseUnits_Rejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		price    string
		decimals int32
	}{
		{"-1", 18},
		{"0.0000000000000000001", 18}, // 19 fractional digits
		{"1.005", 2},
		{"ten", 18},
		{"", 18},
	}
	for _, c := range cases {
		if _, err := ToBaseUnits(c.price, c.decimals); err == nil {
			t.Fatalf("ToBaseUnits(%q, %d): want error", c.price, c.decimals)
		}
	}
}

func TestFromBaseUnits(t *testing.T) {
	t.Parallel()
	amount, ok := new(big.Int).SetString("10500000000000000000", 10)
	if !ok {
		t.Fatal("bad literal")
	}
	if got := FromBaseUnits(amount, 18); got != "10.5" {
		t.Fatalf("FromBaseUnits = %q, want %q", got, "10.5")
	}
	if got := FromBaseUnits(big.NewInt(0), 18); got != "0" {
		t.Fatalf("FromBaseUnits(0) = %q, want %q", got, "0")
	}
}

// Round-trip stability at the base-unit boundary: converting a price down,
// up, and down again lands on the same integer.
func TestUnitConversion_RoundTrip(t *testing.T) {
	t.Parallel()
	for _, price := range []string{"10.50", "0", "0.000000000000000001", "123456789.987654321", "1"} {
		base, err := ToBaseUnits(price, 18)
		if err != nil {
			t.Fatalf("ToBaseUnits(%q): %v", price, err)
		}
		again, err := ToBaseUnits(FromBaseUnits(base, 18), 18)
		if err != nil {
			t.Fatalf("round trip %q: %v", price, err)
		}
		if base.Cmp(again) != 0 {
			t.Fatalf("round trip %q: %s != %s", price, base, again)
		}
	}
}
