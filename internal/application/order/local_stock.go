package order

import (
	"context"

	"github.com/jhoicas/orderflow-api/internal/application/inventory"
)

var _ StockLedger = (*LocalStock)(nil)

// LocalStock adapta el ledger del mismo proceso al puerto StockLedger.
type LocalStock struct {
	ledger *inventory.Ledger
}

func NewLocalStock(ledger *inventory.Ledger) *LocalStock {
	return &LocalStock{ledger: ledger}
}

func (s *LocalStock) Check(ctx context.Context, productID string, quantity int) (bool, error) {
	return s.ledger.Check(ctx, productID, quantity)
}

func (s *LocalStock) Reserve(ctx context.Context, productID string, quantity int, referenceID string) error {
	_, err := s.ledger.Reserve(ctx, productID, quantity, referenceID)
	return err
}

func (s *LocalStock) Release(ctx context.Context, productID string, quantity int, referenceID string) error {
	_, err := s.ledger.Release(ctx, productID, quantity, referenceID)
	return err
}
