package wallet

import (
	"errors"
	"fmt"
)

// Session and provider failures. All are terminal: nothing in this layer
// retries, the user re-triggers the action.
var (
	ErrProviderNotFound   = errors.New("wallet provider not found")
	ErrNoAccounts         = errors.New("no authorized accounts")
	ErrUserRejected       = errors.New("user rejected the request")
	ErrChainNotRegistered = errors.New("chain not registered with provider")
	ErrSwitchRejected     = errors.New("network switch rejected")
	ErrNotConnected       = errors.New("wallet not connected")
	ErrProviderClosed     = errors.New("wallet provider closed")
)

// EIP-1193 provider error codes the session classifies explicitly.
const (
	codeUserRejected      = 4001
	codeUnrecognizedChain = 4902
)

// ProviderError carries a numeric code reported by the wallet provider.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error %d", e.Code)
	}
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func classifyRequestErr(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Code == codeUserRejected {
		return fmt.Errorf("%w: %s", ErrUserRejected, pe.Message)
	}
	return err
}

func classifySwitchErr(err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case codeUnrecognizedChain:
			return fmt.Errorf("%w: chain id unknown to provider", ErrChainNotRegistered)
		case codeUserRejected:
			return fmt.Errorf("%w: %s", ErrSwitchRejected, pe.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrSwitchRejected, err)
}
