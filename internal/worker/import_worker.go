// Package worker turns queued transaction imports into backend
// transactions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"fincli/internal/amqp"
	"fincli/internal/core"
	"fincli/internal/gateway"
	"fincli/internal/log"
	"fincli/internal/middleware/trace"
	"fincli/internal/sheets"
)

// Ledger remembers which messages have already produced a transaction.
type Ledger interface {
	ImportedTransaction(ctx context.Context, messageID string) (string, error)
	MarkImported(ctx context.Context, messageID, transactionID string) error
}

// TransactionCreator creates a transaction on the backend.
type TransactionCreator interface {
	Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
}

// SessionReloader picks up credentials stored by another process.
type SessionReloader interface {
	Reload(ctx context.Context) (bool, error)
}

// ErrNoSession means no credential pair is stored.
var ErrNoSession = errors.New("no stored session, run `fincli login`")

// ImportWorker handles import messages: create through the authenticated
// API, record in the ledger, then mirror to the spreadsheet if configured.
type ImportWorker struct {
	creator TransactionCreator
	session SessionReloader
	ledger  Ledger
	sheets  sheets.TransactionWriter
	logger  *log.Logger
}

// NewImportWorker creates the worker. sess and writer may be nil.
func NewImportWorker(creator TransactionCreator, sess SessionReloader, ledger Ledger, writer sheets.TransactionWriter, logger *log.Logger) *ImportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ImportWorker{
		creator: creator,
		session: sess,
		ledger:  ledger,
		sheets:  writer,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleImportMessage processes one message. Redelivered messages that
// were already imported are acknowledged without creating a duplicate.
func (w *ImportWorker) HandleImportMessage(ctx context.Context, msg *amqp.TransactionImportMessage) error {
	logger := w.logger.With(log.FieldMessageID, msg.MessageID)
	// Backend requests made for this message carry its ID
	ctx = trace.WithRequestID(ctx, msg.MessageID)

	existing, err := w.ledger.ImportedTransaction(ctx, msg.MessageID)
	if err != nil {
		return fmt.Errorf("check import ledger: %w", err)
	}
	if existing != "" {
		logger.InfoContext(ctx, "Import already processed, skipping",
			log.FieldTransactionID, existing)
		return nil
	}

	if err := msg.Transaction.Validate(); err != nil {
		// Requeueing would fail forever
		logger.ErrorContext(ctx, "Dropping invalid import", log.FieldError, err)
		return nil
	}

	if w.session != nil {
		held, err := w.session.Reload(ctx)
		if err != nil {
			return fmt.Errorf("reload session: %w", err)
		}
		if !held {
			return fmt.Errorf("%w: %w", amqp.ErrStopConsuming, ErrNoSession)
		}
	}

	tx, err := w.creator.Create(ctx, msg.Transaction)
	if err != nil {
		return classifyCreateError(err)
	}

	if err := w.ledger.MarkImported(ctx, msg.MessageID, tx.ID); err != nil {
		return fmt.Errorf("record import: %w", err)
	}

	logger.InfoContext(ctx, "Transaction imported",
		log.NewFields().
			WithOperation(log.OpImport).
			WithTransaction(tx.ID, tx.Description, tx.Amount.Cents).
			ToSlice()...)

	if w.sheets == nil {
		return nil
	}
	ref, err := w.sheets.AppendTransaction(ctx, tx)
	if err != nil {
		// The transaction exists on the backend; a retry would be skipped by
		// the ledger anyway.
		logger.ErrorContext(ctx, "Failed to mirror transaction to sheet",
			log.FieldTransactionID, tx.ID,
			log.FieldError, err)
		return nil
	}
	logger.DebugContext(ctx, "Transaction mirrored", log.FieldSheetsRef, ref)
	return nil
}

// classifyCreateError decides what happens to the message. An invalid
// session stops the worker; other client errors can never succeed and drop
// the message; the rest are retried.
func classifyCreateError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrSessionExpired), gateway.IsStatus(err, http.StatusUnauthorized):
		return fmt.Errorf("%w: create transaction: %w", amqp.ErrStopConsuming, err)
	case isPermanent(err):
		return fmt.Errorf("%w: create transaction: %w", amqp.ErrDiscard, err)
	default:
		return fmt.Errorf("create transaction: %w", err)
	}
}

func isPermanent(err error) bool {
	var he *gateway.HTTPError
	if !errors.As(err, &he) {
		return false
	}
	switch he.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return he.StatusCode >= 400 && he.StatusCode < 500
}

// Run consumes imports until ctx is done or the session can no longer be
// used.
func (w *ImportWorker) Run(ctx context.Context, client *amqp.Client) error {
	w.logger.InfoContext(ctx, "Import worker started", log.FieldOperation, log.OpStartup)
	err := client.ConsumeTransactionImports(ctx, w.HandleImportMessage)
	w.logger.InfoContext(ctx, "Import worker stopped", log.FieldOperation, log.OpShutdown)
	return err
}
