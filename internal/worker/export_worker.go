package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/ledger"
	"fintrack/internal/sheets"
)

// ExportWorker applies transaction events to a spreadsheet mirror. Events
// carry full snapshots, so the worker never reads the ledger database.
type ExportWorker struct {
	exporter sheets.TransactionExporter
}

func NewExportWorker(exporter sheets.TransactionExporter) *ExportWorker {
	return &ExportWorker{exporter: exporter}
}

// HandleEvent has the amqp.Handler signature. A returned error requeues the
// message.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"transaction_id", msg.ID,
		"event", msg.Type,
		"owner_id", msg.OwnerID)

	switch msg.EventType() {
	case ledger.EventCreated, ledger.EventUpdated:
		if err := w.exporter.Upsert(ctx, msg.Transaction()); err != nil {
			return fmt.Errorf("export transaction %s: %w", msg.ID, err)
		}
	case ledger.EventDeleted:
		if err := w.exporter.Remove(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove transaction %s: %w", msg.ID, err)
		}
	default:
		// Decoding rejects unknown types, so this only guards direct callers.
		slog.WarnContext(ctx, "Ignoring unknown event type", "event", msg.Type)
	}
	return nil
}
