package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/The-Membrane/brane-auction/shared/auction"
)

// Event kinds, also used as the last token of pub/sub channels and NATS subjects
const (
	KindSubmission = "submission"
	KindCuration   = "curation"
	KindBid        = "bid"
	KindSettlement = "settlement"
)

// StreamName is the JetStream stream carrying events to the archival worker
const StreamName = "AUCTION_EVENTS"

// SubjectPrefix namespaces archival subjects: auction.events.{kind}
const SubjectPrefix = "auction.events"

// Subject returns the archival subject of an event kind
func Subject(kind string) string {
	return SubjectPrefix + "." + kind
}

// Envelope wraps every published event so consumers can route on Kind
type Envelope struct {
	Kind      string          `json:"kind"`
	EventID   string          `json:"event_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into an envelope of the given kind
func NewEnvelope(kind, eventID string, ts time.Time, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", kind, err)
	}
	return &Envelope{Kind: kind, EventID: eventID, Timestamp: ts, Payload: raw}, nil
}

// SubmitRequest is the body of POST /api/v1/submissions
type SubmitRequest struct {
	Submitter        string         `json:"submitter"`
	ProceedRecipient string         `json:"proceed_recipient"`
	TokenURI         string         `json:"token_uri"`
	Funds            []auction.Coin `json:"funds"`
}

// SubmissionEvent is published when an artwork enters curation
type SubmissionEvent struct {
	EventID      string                `json:"event_id"`
	SubmissionID uint64                `json:"submission_id"`
	Submitter    string                `json:"submitter"`
	TokenURI     string                `json:"token_uri"`
	EndTime      time.Time             `json:"end_time"`
	Instructions []auction.Instruction `json:"instructions"`
	Timestamp    time.Time             `json:"timestamp"`
}

// CurateRequest is the body of POST /api/v1/curations
type CurateRequest struct {
	Voter         string   `json:"voter"`
	SubmissionIDs []uint64 `json:"submission_ids"`
	Vote          bool     `json:"vote"`
}

// CurationEvent is published once per curation call with every per-id outcome
type CurationEvent struct {
	EventID   string                   `json:"event_id"`
	Voter     string                   `json:"voter"`
	Vote      bool                     `json:"vote"`
	Results   []auction.CurationResult `json:"results"`
	Timestamp time.Time                `json:"timestamp"`
}

// SettlementEvent carries the instruction batch of a concluded auction
type SettlementEvent struct {
	EventID            string                `json:"event_id"`
	TokenID            *uint64               `json:"token_id,omitempty"`
	TokenURI           string                `json:"token_uri"`
	Winner             string                `json:"winner,omitempty"`
	WinningBid         string                `json:"winning_bid"`
	DistributionAmount string                `json:"distribution_amount"`
	Instructions       []auction.Instruction `json:"instructions"`
	NextTokenURI       string                `json:"next_token_uri,omitempty"`
	Timestamp          time.Time             `json:"timestamp"`
}

// SubmitResponse is returned after a submission is registered
type SubmitResponse struct {
	SubmissionID uint64                 `json:"submission_id"`
	Item         auction.SubmissionItem `json:"item"`
	Instructions []auction.Instruction  `json:"instructions"`
	EventID      string                 `json:"event_id"`
}

// CurateResponse lists the outcome of every submission id in the request
type CurateResponse struct {
	Results []auction.CurationResult `json:"results"`
	EventID string                   `json:"event_id"`
}

// SubmissionsResponse is one page of GET /api/v1/submissions
type SubmissionsResponse struct {
	Submissions []auction.SubmissionEntry `json:"submissions"`
}
