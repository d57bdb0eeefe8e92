package contracts

import (
	"context"
	"math/big"

	"veloracloud/txexec"
	"veloracloud/units"
)

// StakingInfo describes the global staking pool parameters.
type StakingInfo struct {
	TotalStaked    string
	RewardRate     *big.Int
	MinStakeAmount string
}

type rawStakingInfo struct {
	TotalStaked    *big.Int
	RewardRate     *big.Int
	MinStakeAmount *big.Int
}

// Staking wraps the staking contract.
type Staking struct {
	bound
}

// Stake locks amount VLR into the staking pool.
func (s *Staking) Stake(ctx context.Context, amount string) (*txexec.Pending, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return s.transact(ctx, nil, "stake", value)
}

// Unstake releases amount VLR from the staking pool.
func (s *Staking) Unstake(ctx context.Context, amount string) (*txexec.Pending, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return s.transact(ctx, nil, "unstake", value)
}

// ClaimRewards claims the caller's accrued staking rewards.
func (s *Staking) ClaimRewards(ctx context.Context) (*txexec.Pending, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.transact(ctx, nil, "claimRewards")
}

// StakedBalance reads the staked balance of address.
func (s *Staking) StakedBalance(ctx context.Context, address string) (string, error) {
	user, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	out, err := s.call(ctx, "getStakedBalance", user)
	if err != nil {
		return "", err
	}
	return units.Format(asBigInt(out[0])), nil
}

// PendingRewards reads the unclaimed rewards of address.
func (s *Staking) PendingRewards(ctx context.Context, address string) (string, error) {
	user, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	out, err := s.call(ctx, "getPendingRewards", user)
	if err != nil {
		return "", err
	}
	return units.Format(asBigInt(out[0])), nil
}

// Info reads the global staking parameters.
func (s *Staking) Info(ctx context.Context) (StakingInfo, error) {
	out, err := s.call(ctx, "getStakingInfo")
	if err != nil {
		return StakingInfo{}, err
	}
	raw := toStruct[rawStakingInfo](out[0])
	return StakingInfo{
		TotalStaked:    units.Format(raw.TotalStaked),
		RewardRate:     raw.RewardRate,
		MinStakeAmount: units.Format(raw.MinStakeAmount),
	}, nil
}
