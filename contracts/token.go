package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"veloracloud/txexec"
	"veloracloud/units"
)

// Token wraps the VLR ERC-20 contract. Amounts cross this boundary as
// human-decimal strings and are converted to base units exactly once.
type Token struct {
	bound
}

// Transfer sends amount VLR to the recipient.
func (t *Token) Transfer(ctx context.Context, to, amount string) (*txexec.Pending, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	toAddr, err := parseAddress(to)
	if err != nil {
		return nil, err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return t.transact(ctx, nil, "transfer", toAddr, value)
}

// Approve authorizes the spender for amount VLR.
func (t *Token) Approve(ctx context.Context, spender, amount string) (*txexec.Pending, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	spenderAddr, err := parseAddress(spender)
	if err != nil {
		return nil, err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return t.transact(ctx, nil, "approve", spenderAddr, value)
}

// BalanceOf reads the VLR balance of address as a decimal string.
func (t *Token) BalanceOf(ctx context.Context, address string) (string, error) {
	owner, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	out, err := t.call(ctx, "balanceOf", owner)
	if err != nil {
		return "", err
	}
	return units.Format(asBigInt(out[0])), nil
}

// Allowance reads the spender's remaining allowance from owner.
func (t *Token) Allowance(ctx context.Context, owner, spender string) (string, error) {
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return "", err
	}
	spenderAddr, err := parseAddress(spender)
	if err != nil {
		return "", err
	}
	out, err := t.call(ctx, "allowance", ownerAddr, spenderAddr)
	if err != nil {
		return "", err
	}
	return units.Format(asBigInt(out[0])), nil
}

func asBigInt(v any) *big.Int {
	return *abi.ConvertType(v, new(*big.Int)).(**big.Int)
}
