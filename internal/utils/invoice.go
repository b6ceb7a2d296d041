package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	InvoicePrefixSale     = "V"
	InvoicePrefixPurchase = "C"
)

// GenerateInvoiceNumber builds a candidate invoice number from a
// structural prefix, the current year, a month-to-second timestamp and
// three random digits. Uniqueness is still enforced by the database;
// callers retry on collision.
func GenerateInvoiceNumber(prefix string) string {
	now := time.Now()
	return fmt.Sprintf("%s%d%s%s", prefix, now.Year(), now.Format("0102150405"), randomDigits(3))
}

func randomDigits(n int) string {
	digits := make([]byte, n)
	for i := range digits {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			digits[i] = '0'
			continue
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}
