package auction

import "errors"

var (
	ErrInvalidArtworkURI       = errors.New("invalid artwork uri")
	ErrInsufficientFunds       = errors.New("submission cost not sent")
	ErrExceededSubmissionLimit = errors.New("exceeded submission limit")
	ErrInvalidBidAsset         = errors.New("invalid bid asset")
	ErrBidTooLow               = errors.New("bid is not higher than the current highest bid")
	ErrAuctionEnded            = errors.New("auction has ended")
	ErrAuctionStillLive        = errors.New("auction is still live")
	ErrHolderCheckFailed       = errors.New("sender does not hold an nft in the collection")
	ErrNotFound                = errors.New("not found")
)
