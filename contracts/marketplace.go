package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"veloracloud/txexec"
	"veloracloud/units"
)

// NodeInfo describes a compute node listed on the marketplace.
type NodeInfo struct {
	Provider     common.Address
	PricePerHour string
	Available    bool
	Reputation   *big.Int
}

type rawNodeInfo struct {
	Provider     common.Address
	PricePerHour *big.Int
	Available    bool
	Reputation   *big.Int
}

// Marketplace wraps the compute-node marketplace contract.
type Marketplace struct {
	bound
}

// CreateNode lists a node at pricePerHour VLR with the given spec string.
func (m *Marketplace) CreateNode(ctx context.Context, nodeID, pricePerHour, specs string) (*txexec.Pending, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	id, err := requireID("node id", nodeID)
	if err != nil {
		return nil, err
	}
	price, err := parseAmount(pricePerHour)
	if err != nil {
		return nil, err
	}
	return m.transact(ctx, nil, "createNode", id, price, specs)
}

// RentNode rents a node for durationHours, attaching totalCost as the
// transaction value.
func (m *Marketplace) RentNode(ctx context.Context, nodeID string, durationHours uint64, totalCost string) (*txexec.Pending, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	id, err := requireID("node id", nodeID)
	if err != nil {
		return nil, err
	}
	if durationHours == 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	cost, err := parseAmount(totalCost)
	if err != nil {
		return nil, err
	}
	return m.transact(ctx, cost, "rentNode", id, new(big.Int).SetUint64(durationHours))
}

// ReleasePayment releases the escrowed rental payment to the provider.
func (m *Marketplace) ReleasePayment(ctx context.Context, orderID string) (*txexec.Pending, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	id, err := requireID("order id", orderID)
	if err != nil {
		return nil, err
	}
	return m.transact(ctx, nil, "releasePayment", id)
}

// WithdrawEarnings withdraws the caller's accumulated provider earnings.
func (m *Marketplace) WithdrawEarnings(ctx context.Context) (*txexec.Pending, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.transact(ctx, nil, "withdrawEarnings")
}

// NodeInfo reads a node listing.
func (m *Marketplace) NodeInfo(ctx context.Context, nodeID string) (NodeInfo, error) {
	id, err := requireID("node id", nodeID)
	if err != nil {
		return NodeInfo{}, err
	}
	out, err := m.call(ctx, "getNodeInfo", id)
	if err != nil {
		return NodeInfo{}, err
	}
	raw := toStruct[rawNodeInfo](out[0])
	return NodeInfo{
		Provider:     raw.Provider,
		PricePerHour: units.Format(raw.PricePerHour),
		Available:    raw.Available,
		Reputation:   raw.Reputation,
	}, nil
}

// UserBalance reads the marketplace-held balance of address.
func (m *Marketplace) UserBalance(ctx context.Context, address string) (string, error) {
	user, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	out, err := m.call(ctx, "getUserBalance", user)
	if err != nil {
		return "", err
	}
	return units.Format(asBigInt(out[0])), nil
}

// ActiveRentals lists the node ids address currently rents.
func (m *Marketplace) ActiveRentals(ctx context.Context, address string) ([]string, error) {
	user, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	out, err := m.call(ctx, "getActiveRentals", user)
	if err != nil {
		return nil, err
	}
	return toStruct[[]string](out[0]), nil
}
