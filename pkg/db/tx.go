package db

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// TransactionOutcome reports how a unit of work was executed.
type TransactionOutcome int

const (
	// OutcomeNotStarted means the transaction could not be opened and nothing ran.
	OutcomeNotStarted TransactionOutcome = iota
	OutcomeCommitted
	OutcomeRolledBack
	// OutcomeNonTransactional means the store rejected transactions and the
	// unit of work was re-run once with a nil handle.
	OutcomeNonTransactional
)

func (o TransactionOutcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeRolledBack:
		return "rolled_back"
	case OutcomeNonTransactional:
		return "non_transactional"
	default:
		return "not_started"
	}
}

// ErrTransactionsUnsupported marks failures caused by a store that cannot run transactions.
var ErrTransactionsUnsupported = errors.New("transactions not supported")

// UnitOfWork receives the active transaction, or nil when running without one.
// It must be safe to run twice: reads first, writes only after validation.
type UnitOfWork func(tx *gorm.DB) error

// TxRunner runs a unit of work with best-effort atomicity.
type TxRunner interface {
	RunOptionalTx(ctx context.Context, fn UnitOfWork) (TransactionOutcome, error)
}

// Beginner opens a transaction bound to ctx.
type Beginner func(ctx context.Context) (*gorm.DB, error)

// OutcomeObserver is notified once per RunOptionalTx call.
type OutcomeObserver func(TransactionOutcome)

// SetOutcomeObserver installs a hook used for metrics.
func (c *Client) SetOutcomeObserver(obs OutcomeObserver) {
	c.observer = obs
}

// RunOptionalTx executes fn in a transaction, falling back to a single
// non-transactional run when the store reports transactions are unsupported.
func (c *Client) RunOptionalTx(ctx context.Context, fn UnitOfWork) (TransactionOutcome, error) {
	outcome, err := RunOptional(ctx, c.begin, fn)
	if c.observer != nil {
		c.observer(outcome)
	}
	return outcome, err
}

func (c *Client) begin(ctx context.Context) (*gorm.DB, error) {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// RunOptional is the strategy behind RunOptionalTx. The transaction handle is
// always released: committed, rolled back, or never opened.
func RunOptional(ctx context.Context, begin Beginner, fn UnitOfWork) (TransactionOutcome, error) {
	tx, err := begin(ctx)
	if err != nil {
		if IsTransactionsUnsupported(err) {
			return OutcomeNonTransactional, fn(nil)
		}
		return OutcomeNotStarted, err
	}

	released := false
	defer func() {
		if !released {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		released = true
		if IsTransactionsUnsupported(err) {
			return OutcomeNonTransactional, fn(nil)
		}
		return OutcomeRolledBack, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		released = true
		if IsTransactionsUnsupported(err) {
			return OutcomeNonTransactional, fn(nil)
		}
		return OutcomeRolledBack, err
	}
	released = true
	return OutcomeCommitted, nil
}

// IsTransactionsUnsupported reports whether err signals a store without transaction support.
func IsTransactionsUnsupported(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransactionsUnsupported) || errors.Is(err, gorm.ErrInvalidTransaction) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "transactions are not supported") ||
		strings.Contains(msg, "does not support transactions")
}
