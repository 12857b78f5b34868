// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across chain/wallet/market layers.
var (
	// ErrSelectionCancelled indicates the user aborted the wallet provider choice.
	// Not a failure: callers treat it as a no-op.
	ErrSelectionCancelled = errors.New("provider selection cancelled")

	// ErrConnectFailed indicates a provider or network error during connect.
	// Recoverable: the user may retry.
	ErrConnectFailed = errors.New("connect failed")

	// ErrBalanceQuery indicates a balance read issued without an account or a
	// failed token balance call.
	ErrBalanceQuery = errors.New("balance query failed")

	// ErrSubmissionFailed indicates an on-chain write rejected by the signer,
	// wallet, or network. The underlying cause is wrapped, never rewritten.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrNotFound indicates a read for an item id the contract does not know.
	ErrNotFound = errors.New("not found")
)

// Wrap attaches a sentinel kind to a cause so callers can both errors.Is the
// kind and inspect the unmodified cause.
func Wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
