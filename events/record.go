package events

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Type names the kind of on-chain activity a record describes.
type Type string

const (
	TypeTransfer        Type = "transfer"
	TypeNodeRented      Type = "node_rented"
	TypePaymentReleased Type = "payment_released"
	TypeStaked          Type = "staked"
	TypeRewardsClaimed  Type = "rewards_claimed"
)

// Record is one decoded log entry in the activity feed. ID is unique per log
// so replays after a resubscribe collapse into a single entry.
type Record struct {
	ID          string            `json:"id"`
	Type        Type              `json:"type"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	TxHash      common.Hash       `json:"txHash"`
	BlockNumber uint64            `json:"blockNumber"`
	Timestamp   time.Time         `json:"timestamp"`
	Payload     map[string]string `json:"payload,omitempty"`
}

func newRecord(t Type, lg types.Log, now time.Time) Record {
	return Record{
		ID:          fmt.Sprintf("%s-%d", lg.TxHash.Hex(), lg.Index),
		Type:        t,
		TxHash:      lg.TxHash,
		BlockNumber: lg.BlockNumber,
		Timestamp:   now,
	}
}

func shortAddr(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}
