package prescription

import "fmt"

// InsufficientStockError reports a prescription line asking for more than
// the medicine has in stock. The transaction it occurred in is rolled back.
type InsufficientStockError struct {
	MedicineID   int64
	MedicineName string
	Available    int
	Requested    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.MedicineName, e.Available, e.Requested)
}
