package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blitz-trivia-service/internal/domain"
	"github.com/shopspring/decimal"
)

// mintWithTimeout bounds a mint call and classifies its failure as
// ErrMintTimeout or ErrMintRejected. The original error stays in the chain.
func mintWithTimeout(ctx context.Context, m Minter, timeout time.Duration, address string, amount decimal.Decimal) (string, error) {
	mctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		mctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	hash, err := m.Mint(mctx, address, amount)
	if err == nil {
		return hash, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(mctx.Err(), context.DeadlineExceeded) {
		return hash, fmt.Errorf("%w: %w", domain.ErrMintTimeout, err)
	}
	return hash, fmt.Errorf("%w: %w", domain.ErrMintRejected, err)
}
