package money

import "testing"

func TestFormatted(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{150, "1.50"},
		{-150, "-1.50"},
		{5, "0.05"},
		{-5, "-0.05"},
		{459900, "4599.00"},
	}

	for _, c := range cases {
		if got := Formatted(c.cents); got != c.want {
			t.Errorf("Formatted(%d) = %q, want %q", c.cents, got, c.want)
		}
	}
}
