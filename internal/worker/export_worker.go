package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/on3oleg/utihome/internal/amqp"
	"github.com/on3oleg/utihome/internal/export"
	"github.com/on3oleg/utihome/internal/storage"
)

// ExportWorker pushes committed bills from SQLite to the configured bill
// writer (Google Sheets in production).
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	writer    export.BillWriter
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, writer export.BillWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single bill export message from AMQP
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.BillExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"bill_id", msg.BillID,
		"property_id", msg.PropertyID)

	billID, err := strconv.ParseInt(msg.BillID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse bill id %q: %w", msg.BillID, err)
	}

	return w.exportBill(ctx, billID)
}

// ProcessPendingBills exports any bills that were committed but never made it
// to the sheet. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingBills(ctx context.Context) error {
	pending, err := w.storage.PendingExportBills(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending bills: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending bills", "count", len(pending))

	for _, p := range pending {
		if err := w.exportBill(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export bill", "bill_id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupExportCheck drains the pending backlog at worker startup. Useful to
// recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.storage.PendingExportBills(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending bills for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending bills found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending bills on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.exportBill(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export bill during startup",
				"bill_id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportBill(ctx context.Context, billID int64) error {
	bill, propertyID, err := w.storage.Bill(ctx, billID)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, billID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "bill_id", billID, "error", markErr)
		}
		return fmt.Errorf("load bill: %w", err)
	}

	propertyName := ""
	if prop, err := w.storage.Property(ctx, propertyID); err != nil {
		slog.WarnContext(ctx, "Could not resolve property name", "property_id", propertyID, "error", err)
	} else {
		propertyName = prop.Name
	}

	ref, err := w.writer.AppendBill(ctx, propertyName, bill)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, billID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "bill_id", billID, "error", markErr)
		}
		return fmt.Errorf("append bill to writer: %w", err)
	}

	if err := w.storage.MarkExported(ctx, billID); err != nil {
		// The export itself worked; log and move on.
		slog.ErrorContext(ctx, "Failed to mark as exported", "bill_id", billID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Successfully exported bill",
		"bill_id", billID,
		"sheet_ref", ref,
		"total_cost", bill.TotalCost.String())

	return nil
}
