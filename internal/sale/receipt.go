package sale

import (
	"fmt"
	"math/rand"
	"time"
)

// ReceiptGenerator hands out human-readable receipt numbers. Uniqueness is
// enforced by the store; callers retry on collision.
type ReceiptGenerator interface {
	Next(now time.Time) string
}

type randomReceipts struct{}

// NewReceiptGenerator returns RCP-YYMMDD-#### numbers with a random suffix.
func NewReceiptGenerator() ReceiptGenerator {
	return randomReceipts{}
}

func (randomReceipts) Next(now time.Time) string {
	return FormatReceipt(now, rand.Intn(10000))
}

func FormatReceipt(now time.Time, seq int) string {
	return fmt.Sprintf("RCP-%s-%04d", now.Format("060102"), seq)
}
