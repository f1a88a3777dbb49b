package models

import (
	"errors"
	"time"
)

type OptionSide string
type RuleKind string
type RuleStatus string
type TriggerType string
type UpdateKind string

const (
	OptionSideCE OptionSide = "CE"
	OptionSidePE OptionSide = "PE"

	RuleKindEntry    RuleKind = "ENTRY"
	RuleKindStoploss RuleKind = "STOPLOSS"
	RuleKindTarget   RuleKind = "TARGET"

	RuleStatusPending   RuleStatus = "PENDING"
	RuleStatusActive    RuleStatus = "ACTIVE"
	RuleStatusTriggered RuleStatus = "TRIGGERED"
	RuleStatusFailed    RuleStatus = "FAILED"
	RuleStatusCancelled RuleStatus = "CANCELLED"
	RuleStatusCompleted RuleStatus = "COMPLETED"

	TriggerTypeAbove     TriggerType = "ABOVE"
	TriggerTypeImmediate TriggerType = "IMMEDIATE"

	UpdateKindOrder    UpdateKind = "order"
	UpdateKindGtt      UpdateKind = "gtt_order"
	UpdateKindPosition UpdateKind = "position"
	UpdateKindHolding  UpdateKind = "holding"
)

var (
	ErrPriceCaptureTimeout = errors.New("не удалось получить цену базового индекса")
	ErrContractNotFound    = errors.New("опционный контракт не найден в цепочке")
)

type GttRule struct {
	Strategy     RuleKind    `json:"strategy"`
	TriggerType  TriggerType `json:"trigger_type"`
	TriggerPrice float64     `json:"trigger_price"`
}

// GttRuleState is one rule's status snapshot inside a portfolio update.
type GttRuleState struct {
	Strategy     RuleKind   `json:"strategy"`
	Status       RuleStatus `json:"status"`
	TriggerType  string     `json:"trigger_type"`
	TriggerPrice float64    `json:"trigger_price"`
	OrderID      string     `json:"order_id"`
	Message      string     `json:"message"`
}

type PortfolioUpdate struct {
	Kind       UpdateKind     `json:"update_type"`
	GttOrderID string         `json:"gtt_order_id"`
	OrderID    string         `json:"order_id"`
	Status     string         `json:"status"`
	Message    string         `json:"message"`
	Rules      []GttRuleState `json:"rules"`
}

type Tick struct {
	InstrumentKey string
	LTP           float64
	ClosePrice    float64
	OHLCHigh      float64 // high of the current 1-minute interval, 0 if the frame carries none
	LastTradeTime time.Time
}

type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

type OptionContract struct {
	InstrumentKey  string  `json:"instrument_key"`
	StrikePrice    float64 `json:"strike_price"`
	InstrumentType string  `json:"instrument_type"`
	TradingSymbol  string  `json:"trading_symbol"`
	ExpiryDate     string  `json:"expiry"`
}

type UnderlyingSnapshot struct {
	Price      float64
	CapturedAt time.Time
}

// OptionLeg is one side of the two-sided position. Mutated only on the engine's
// consuming flow, so it carries no locking of its own.
type OptionLeg struct {
	Side          OptionSide
	InstrumentKey string
	HighPrice     float64
	OrderID       string
	StoplossHits  int
	Terminal      bool
}
