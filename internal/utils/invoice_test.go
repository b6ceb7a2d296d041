package utils

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateInvoiceNumberShape(t *testing.T) {
	number := GenerateInvoiceNumber(InvoicePrefixSale)

	// V + YYYY + MMDDHHMMSS + 3 random digits.
	assert.Len(t, number, 18)
	assert.True(t, strings.HasPrefix(number, fmt.Sprintf("V%d", time.Now().Year())))

	for _, r := range number[1:] {
		assert.True(t, r >= '0' && r <= '9', "expected digit, got %q", r)
	}
}

func TestGenerateInvoiceNumberPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateInvoiceNumber(InvoicePrefixSale), "V"))
	assert.True(t, strings.HasPrefix(GenerateInvoiceNumber(InvoicePrefixPurchase), "C"))
}
