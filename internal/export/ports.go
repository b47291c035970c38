package export

import (
	"context"

	"github.com/on3oleg/utihome/internal/core"
)

// BillWriter is the outbound port for exporting committed bills.
type BillWriter interface {
	// AppendBill writes one bill row and returns a reference to where it landed.
	AppendBill(ctx context.Context, propertyName string, b core.BillRecord) (rowRef string, err error)
}
