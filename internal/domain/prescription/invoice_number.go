package prescription

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const invoiceSuffixChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewInvoiceNumber returns a stored invoice number of the form
// INV-YYYYMMDD-XXXXXX.
func NewInvoiceNumber(issued time.Time) (string, error) {
	suffix := make([]byte, 6)
	max := big.NewInt(int64(len(invoiceSuffixChars)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invoice number: %w", err)
		}
		suffix[i] = invoiceSuffixChars[n.Int64()]
	}
	return "INV-" + issued.Format("20060102") + "-" + string(suffix), nil
}

// DisplayInvoiceNumber is the number printed on the invoice view, derived
// from the prescription id.
func DisplayInvoiceNumber(prescriptionID int64) string {
	return fmt.Sprintf("INV-%06d", prescriptionID)
}
