package services

import (
	"context"
	"errors"
	"fmt"

	"fincli/internal/amqp"
	"fincli/internal/core"
	"fincli/internal/log"
)

// Publisher queues imports for the worker.
type Publisher interface {
	PublishTransactionImport(ctx context.Context, msg *amqp.TransactionImportMessage) error
}

// TransactionCreator creates a transaction on the backend.
type TransactionCreator interface {
	Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
}

// ImportResult says where an import went.
type ImportResult struct {
	MessageID     string
	TransactionID string
	Queued        bool
}

// ImportService sends transaction imports to the queue when one is
// configured and straight to the backend otherwise.
type ImportService struct {
	publisher Publisher
	creator   TransactionCreator
	logger    *log.Logger
}

// NewImportService creates the service. publisher may be nil.
func NewImportService(publisher Publisher, creator TransactionCreator, logger *log.Logger) *ImportService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ImportService{
		publisher: publisher,
		creator:   creator,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Enqueue validates in and queues it. When publishing fails the
// transaction is created directly so the import is never lost.
func (s *ImportService) Enqueue(ctx context.Context, in core.TransactionInput) (ImportResult, error) {
	if err := in.Validate(); err != nil {
		return ImportResult{}, fmt.Errorf("invalid transaction %q: %w", in.Description, err)
	}

	if s.publisher != nil {
		msg := amqp.NewTransactionImportMessage(in)
		err := s.publisher.PublishTransactionImport(ctx, msg)
		if err == nil {
			return ImportResult{MessageID: msg.MessageID, Queued: true}, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ImportResult{}, err
		}
		s.logger.WarnContext(ctx, "Failed to queue import, creating directly",
			log.FieldOperation, log.OpImport,
			log.FieldMessageID, msg.MessageID,
			log.FieldError, err)
	}

	if s.creator == nil {
		return ImportResult{}, errors.New("no import queue or backend client configured")
	}
	tx, err := s.creator.Create(ctx, in)
	if err != nil {
		return ImportResult{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction imported directly",
		log.NewFields().
			WithOperation(log.OpImport).
			WithTransaction(tx.ID, in.Description, in.Amount.Cents).
			ToSlice()...)
	return ImportResult{TransactionID: tx.ID}, nil
}

// EnqueueAll imports every row, stopping at the first failure. It returns
// the results of the rows imported so far.
func (s *ImportService) EnqueueAll(ctx context.Context, rows []core.TransactionInput) ([]ImportResult, error) {
	results := make([]ImportResult, 0, len(rows))
	for i, in := range rows {
		res, err := s.Enqueue(ctx, in)
		if err != nil {
			return results, fmt.Errorf("row %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}
