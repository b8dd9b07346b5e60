package auction

// InstructionKind tells the executor what to do with an Instruction
type InstructionKind string

const (
	InstructionTransfer InstructionKind = "transfer"
	InstructionMint     InstructionKind = "mint"
)

// Reasons attached to instructions so archived batches stay readable.
const (
	ReasonSubmissionFee = "submission_fee"
	ReasonRefund        = "refund"
	ReasonProceeds      = "proceeds"
	ReasonMint          = "mint"
	ReasonBidderReward  = "bidder_reward"
	ReasonCuratorReward = "curator_reward"
)

// Instruction is a transfer or mint requested by the core. Nothing here is
// executed; the host environment dispatches the batch.
type Instruction struct {
	Kind      InstructionKind `json:"kind"`
	Reason    string          `json:"reason"`
	Recipient Addr            `json:"recipient"`
	// Coin is the transferred amount, or the fee paid along with a mint
	Coin Coin `json:"coin"`

	Collection Addr   `json:"collection,omitempty"`
	TokenID    uint64 `json:"token_id,omitempty"`
	TokenURI   string `json:"token_uri,omitempty"`
}

// TransferNative requests a bank send of coin to recipient
func TransferNative(to Addr, coin Coin, reason string) Instruction {
	return Instruction{
		Kind:      InstructionTransfer,
		Reason:    reason,
		Recipient: to,
		Coin:      coin,
	}
}

// Mint requests a new token in collection owned by owner. fee is paid by the
// contract itself.
func Mint(collection, owner Addr, tokenID uint64, uri string, fee Coin) Instruction {
	return Instruction{
		Kind:       InstructionMint,
		Reason:     ReasonMint,
		Recipient:  owner,
		Coin:       fee,
		Collection: collection,
		TokenID:    tokenID,
		TokenURI:   uri,
	}
}
