package orders

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscount(t *testing.T) {
	cases := []struct {
		base, want string
	}{
		{"0", "0"},
		{"200", "0"},
		{"5000", "0"},
		{"5000.01", "250.0005"},
		{"6000", "300"},
		{"85000", "4250"},
		{"12345.67", "617.2835"},
	}
	for _, c := range cases {
		got := Discount(dec(c.base))
		assert.True(t, got.Equal(dec(c.want)), "Discount(%s) = %s, want %s", c.base, got, c.want)
	}
}

func TestLineTotal(t *testing.T) {
	assert.True(t, LineTotal(dec("19.99"), 3).Equal(dec("59.97")))
	assert.True(t, LineTotal(dec("0.10"), 10).Equal(dec("1")))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "not_found", Kind(notFound("customer with id %d not found", 3)))
	assert.Equal(t, "invalid_input", Kind(InvalidInput("bad")))
	assert.Equal(t, "invalid_operation", Kind(fmt.Errorf("wrapped: %w", invalidOperation("no stock"))))
	assert.Equal(t, "internal", Kind(errors.New("boom")))
}

func TestKindErrorMessageIsHumanReadable(t *testing.T) {
	err := notFound("product with id %d not found", 42)
	assert.Equal(t, "product with id 42 not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidInput))
}
