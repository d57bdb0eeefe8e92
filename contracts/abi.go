// Package contracts binds the four VeloraCloud contracts (token, node
// marketplace, storage escrow, staking) to the active wallet session and
// wraps their methods behind typed, validated operations.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// JSON ABI fragments for the deployed contracts. The text doubles as the
// decoder for log events; method calls go through the typed wrappers below.
const tokenABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

const marketplaceABIJSON = `[
	{"type":"function","name":"createNode","stateMutability":"nonpayable","inputs":[{"name":"nodeId","type":"string"},{"name":"pricePerHour","type":"uint256"},{"name":"specs","type":"string"}],"outputs":[]},
	{"type":"function","name":"rentNode","stateMutability":"payable","inputs":[{"name":"nodeId","type":"string"},{"name":"duration","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"releasePayment","stateMutability":"nonpayable","inputs":[{"name":"orderId","type":"string"}],"outputs":[]},
	{"type":"function","name":"withdrawEarnings","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"getNodeInfo","stateMutability":"view","inputs":[{"name":"nodeId","type":"string"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"provider","type":"address"},{"name":"pricePerHour","type":"uint256"},{"name":"available","type":"bool"},{"name":"reputation","type":"uint256"}]}]},
	{"type":"function","name":"getUserBalance","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getActiveRentals","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"string[]"}]},
	{"type":"event","name":"NodeCreated","inputs":[{"name":"nodeId","type":"string","indexed":true},{"name":"provider","type":"address","indexed":true},{"name":"pricePerHour","type":"uint256","indexed":false}]},
	{"type":"event","name":"NodeRented","inputs":[{"name":"nodeId","type":"string","indexed":true},{"name":"renter","type":"address","indexed":true},{"name":"duration","type":"uint256","indexed":false},{"name":"totalCost","type":"uint256","indexed":false}]},
	{"type":"event","name":"PaymentReleased","inputs":[{"name":"orderId","type":"string","indexed":true},{"name":"provider","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"EarningsWithdrawn","inputs":[{"name":"provider","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

const storageEscrowABIJSON = `[
	{"type":"function","name":"createStorageOrder","stateMutability":"payable","inputs":[{"name":"fileHash","type":"string"},{"name":"storageDuration","type":"uint256"},{"name":"provider","type":"address"}],"outputs":[]},
	{"type":"function","name":"confirmStorage","stateMutability":"nonpayable","inputs":[{"name":"orderId","type":"string"},{"name":"ipfsCid","type":"string"}],"outputs":[]},
	{"type":"function","name":"releaseStoragePayment","stateMutability":"nonpayable","inputs":[{"name":"orderId","type":"string"}],"outputs":[]},
	{"type":"function","name":"disputeOrder","stateMutability":"nonpayable","inputs":[{"name":"orderId","type":"string"}],"outputs":[]},
	{"type":"function","name":"getStorageOrder","stateMutability":"view","inputs":[{"name":"orderId","type":"string"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"customer","type":"address"},{"name":"provider","type":"address"},{"name":"amount","type":"uint256"},{"name":"duration","type":"uint256"},{"name":"ipfsCid","type":"string"},{"name":"status","type":"uint8"}]}]},
	{"type":"event","name":"StorageOrderCreated","inputs":[{"name":"orderId","type":"string","indexed":true},{"name":"customer","type":"address","indexed":true},{"name":"provider","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"StorageConfirmed","inputs":[{"name":"orderId","type":"string","indexed":true},{"name":"ipfsCid","type":"string","indexed":false}]},
	{"type":"event","name":"StoragePaymentReleased","inputs":[{"name":"orderId","type":"string","indexed":true},{"name":"provider","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

const stakingABIJSON = `[
	{"type":"function","name":"stake","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"unstake","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"claimRewards","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"getStakedBalance","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPendingRewards","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getStakingInfo","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"tuple","components":[{"name":"totalStaked","type":"uint256"},{"name":"rewardRate","type":"uint256"},{"name":"minStakeAmount","type":"uint256"}]}]},
	{"type":"event","name":"Staked","inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Unstaked","inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"RewardsClaimed","inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

// Parsed ABIs, shared with the event listener for log decoding.
var (
	TokenABI         = mustParseABI(tokenABIJSON)
	MarketplaceABI   = mustParseABI(marketplaceABIJSON)
	StorageEscrowABI = mustParseABI(storageEscrowABIJSON)
	StakingABI       = mustParseABI(stakingABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
