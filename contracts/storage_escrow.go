package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"veloracloud/txexec"
	"veloracloud/units"
)

// StorageOrder describes an escrowed storage deal.
type StorageOrder struct {
	Customer common.Address
	Provider common.Address
	Amount   string
	Duration *big.Int
	IPFSCid  string
	Status   uint8
}

type rawStorageOrder struct {
	Customer common.Address
	Provider common.Address
	Amount   *big.Int
	Duration *big.Int
	IpfsCid  string
	Status   uint8
}

// StorageEscrow wraps the storage-escrow contract.
type StorageEscrow struct {
	bound
}

// CreateStorageOrder opens an escrowed storage deal with the provider,
// attaching payment as the transaction value.
func (e *StorageEscrow) CreateStorageOrder(ctx context.Context, fileHash string, durationDays uint64, provider, payment string) (*txexec.Pending, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	hash, err := requireID("file hash", fileHash)
	if err != nil {
		return nil, err
	}
	if durationDays == 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	providerAddr, err := parseAddress(provider)
	if err != nil {
		return nil, err
	}
	value, err := parseAmount(payment)
	if err != nil {
		return nil, err
	}
	return e.transact(ctx, value, "createStorageOrder", hash, new(big.Int).SetUint64(durationDays), providerAddr)
}

// ConfirmStorage records the provider's IPFS CID for the order.
func (e *StorageEscrow) ConfirmStorage(ctx context.Context, orderID, ipfsCid string) (*txexec.Pending, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	id, err := requireID("order id", orderID)
	if err != nil {
		return nil, err
	}
	cid, err := requireID("ipfs cid", ipfsCid)
	if err != nil {
		return nil, err
	}
	return e.transact(ctx, nil, "confirmStorage", id, cid)
}

// ReleaseStoragePayment releases the escrowed payment to the provider.
func (e *StorageEscrow) ReleaseStoragePayment(ctx context.Context, orderID string) (*txexec.Pending, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	id, err := requireID("order id", orderID)
	if err != nil {
		return nil, err
	}
	return e.transact(ctx, nil, "releaseStoragePayment", id)
}

// DisputeOrder flags the order for dispute resolution.
func (e *StorageEscrow) DisputeOrder(ctx context.Context, orderID string) (*txexec.Pending, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	id, err := requireID("order id", orderID)
	if err != nil {
		return nil, err
	}
	return e.transact(ctx, nil, "disputeOrder", id)
}

// Order reads an escrowed storage deal.
func (e *StorageEscrow) Order(ctx context.Context, orderID string) (StorageOrder, error) {
	id, err := requireID("order id", orderID)
	if err != nil {
		return StorageOrder{}, err
	}
	out, err := e.call(ctx, "getStorageOrder", id)
	if err != nil {
		return StorageOrder{}, err
	}
	raw := toStruct[rawStorageOrder](out[0])
	return StorageOrder{
		Customer: raw.Customer,
		Provider: raw.Provider,
		Amount:   units.Format(raw.Amount),
		Duration: raw.Duration,
		IPFSCid:  raw.IpfsCid,
		Status:   raw.Status,
	}, nil
}
