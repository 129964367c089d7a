// Package format renders human-facing invoice identifiers.
package format

import (
	"fmt"
	"time"
)

const maxMonthlySeq = 9999

// InvoiceNumber formats the immutable invoice identifier, e.g.
// "INV/2026/03/0042". The sequence restarts every month and is reserved by
// the caller before formatting.
//
// This function is PURE:
// - No side effects
// - No DB access
// - Fully deterministic
func InvoiceNumber(issuedAt time.Time, seq int64) (string, error) {
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	if seq > maxMonthlySeq {
		return "", fmt.Errorf("monthly invoice sequence exhausted: %d", seq)
	}
	return fmt.Sprintf("INV/%04d/%02d/%04d", issuedAt.Year(), int(issuedAt.Month()), seq), nil
}
