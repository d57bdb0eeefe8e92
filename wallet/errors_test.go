package wallet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyRequestErr(t *testing.T) {
	rejected := classifyRequestErr(&ProviderError{Code: codeUserRejected, Message: "denied in wallet"})
	require.ErrorIs(t, rejected, ErrUserRejected)
	require.Contains(t, rejected.Error(), "denied in wallet")

	plain := errors.New("connection refused")
	require.Equal(t, plain, classifyRequestErr(plain))

	otherCode := &ProviderError{Code: -32603}
	require.Equal(t, error(otherCode), classifyRequestErr(otherCode))
}

func TestClassifySwitchErr(t *testing.T) {
	unknown := classifySwitchErr(&ProviderError{Code: codeUnrecognizedChain})
	require.ErrorIs(t, unknown, ErrChainNotRegistered)
	require.NotErrorIs(t, unknown, ErrSwitchRejected)

	rejected := classifySwitchErr(&ProviderError{Code: codeUserRejected, Message: "switch denied"})
	require.ErrorIs(t, rejected, ErrSwitchRejected)

	// Anything else still reads as a failed switch.
	require.ErrorIs(t, classifySwitchErr(errors.New("rpc down")), ErrSwitchRejected)
}

func TestProviderErrorMessage(t *testing.T) {
	require.Equal(t, "provider error 4902", (&ProviderError{Code: 4902}).Error())
	require.Equal(t, "provider error 4001: nope", (&ProviderError{Code: 4001, Message: "nope"}).Error())
}
