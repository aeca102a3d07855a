package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TradeRequest carries the full input of the settlement entrypoint: two
// signed orders, their proposed calls, the caller identity, and the native
// currency value attached to the buyer's leg.
type TradeRequest struct {
	OrderA Order
	SigA   []byte
	CallA  Call
	OrderB Order
	SigB   []byte
	CallB  Call

	Caller   common.Address
	Value    *big.Int // native currency attached by the caller
	Metadata [32]byte // opaque caller-supplied tag, journaled as-is
}

// Settlement is the journaled outcome of a successfully settled trade.
type Settlement struct {
	ID          string
	Asset       common.Address
	TokenID     *big.Int
	Seller      common.Address
	Buyer       common.Address
	Price       *big.Int
	PlatformFee *big.Int
	Reward      *big.Int // incentive tokens minted to the buyer; zero when none
	BlockHeight uint64
	Primary     bool // first recorded sale of this asset
	OrderASalt  *big.Int
	OrderBSalt  *big.Int
	Metadata    [32]byte
	SettledAt   time.Time
}

// Event channel names published on the signal bus.
const (
	ChannelTradeSettled = "trade_settled"
	ChannelRewardMinted = "reward_minted"
)

// TradeSettledEvent is the payload published after every settlement.
type TradeSettledEvent struct {
	SettlementID string    `json:"settlement_id"`
	Asset        string    `json:"asset"`
	TokenID      string    `json:"token_id"`
	Seller       string    `json:"seller"`
	Buyer        string    `json:"buyer"`
	Price        string    `json:"price"`
	PlatformFee  string    `json:"platform_fee"`
	BlockHeight  uint64    `json:"block_height"`
	SettledAt    time.Time `json:"settled_at"`
}

// RewardMintedEvent is published when a settlement mints a non-zero reward.
type RewardMintedEvent struct {
	SettlementID string `json:"settlement_id"`
	Buyer        string `json:"buyer"`
	Amount       string `json:"amount"`
	Asset        string `json:"asset"`
	TokenID      string `json:"token_id"`
}
