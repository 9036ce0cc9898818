package models

import (
	"time"

	"github.com/shopspring/decimal"
)

/////////////////////////////////////////////////////////////////////////////
///////////////////////////////// GENERAL ///////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// StrikeRow is one strike of a fetched option chain. The raw fields keep the
// source's display text when the source is a rendered table.
type StrikeRow struct {
	Strike     string
	CallOI     int64
	PutOI      int64
	CallLTP    decimal.Decimal
	PutLTP     decimal.Decimal
	CallOIRaw  string
	PutOIRaw   string
	CallLTPRaw string
	PutLTPRaw  string
}

// DeltaAnnotation holds the change against the previous snapshot and its
// rendered form.
type DeltaAnnotation struct {
	CallOIDelta      int64
	PutOIDelta       int64
	CallLTPDelta     decimal.Decimal
	PutLTPDelta      decimal.Decimal
	CallOIDeltaText  string
	PutOIDeltaText   string
	CallLTPDeltaText string
	PutLTPDeltaText  string
}

// AnnotatedRow is a StrikeRow after delta computation.
type AnnotatedRow struct {
	StrikeRow
	DeltaAnnotation
}

// Chain is the result of one fetch.
type Chain struct {
	Source     string
	Rows       []StrikeRow
	Underlying decimal.Decimal
	Expiry     string
	FetchedAt  time.Time
}

/////////////////////////////////////////////////////////////////////////////
/////////////////////////////////// NSE /////////////////////////////////////
/////////////////////////////////////////////////////////////////////////////

// NSEOptionChainResp mirrors the option-chain-indices payload.
type NSEOptionChainResp struct {
	Records NSERecords `json:"records"`
}

type NSERecords struct {
	ExpiryDates     []string        `json:"expiryDates"`
	UnderlyingValue decimal.Decimal `json:"underlyingValue"`
	Data            []NSEStrikeData `json:"data"`
}

type NSEStrikeData struct {
	StrikePrice decimal.Decimal `json:"strikePrice"`
	ExpiryDate  string          `json:"expiryDate"`
	CE          *NSEOptionLeg   `json:"CE,omitempty"`
	PE          *NSEOptionLeg   `json:"PE,omitempty"`
}

// NSEOptionLeg is one side (call or put) of a strike.
type NSEOptionLeg struct {
	OpenInterest decimal.Decimal `json:"openInterest"`
	LastPrice    decimal.Decimal `json:"lastPrice"`
}
