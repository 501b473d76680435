package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatKRW(t *testing.T) {
	cases := map[int64]string{
		0:        "₩0",
		500:      "₩500",
		5000:     "₩5,000",
		13000:    "₩13,000",
		1234567:  "₩1,234,567",
		-25000:   "₩-25,000",
		100000:   "₩100,000",
		10000000: "₩10,000,000",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatKRW(in), "amount %d", in)
	}
}
