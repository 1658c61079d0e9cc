package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountInCents(t *testing.T) {
	cases := map[string]struct {
		amount float64
		cents  int64
	}{
		"whole":            {25.00, 2500},
		"just under cent":  {12.34, 1234},      // 1233.9999... must not truncate to 1233
		"three seats 1010": {3 * 10.10, 3030}, // 30.299999... must not truncate to 3029
		"zero":             {0, 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.cents, amountInCents(tc.amount))
		})
	}
}
