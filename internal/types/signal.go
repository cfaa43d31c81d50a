package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/helix-quant/cta-trading/pkg/errors"
)

type Direction string

type Action string

type TimeInForce string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

const (
	ActionOpen   Action = "OPEN"
	ActionClose  Action = "CLOSE"
	ActionCancel Action = "CANCEL"
)

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceIOC TimeInForce = "ioc"
)

// OrderIntent is a strategy's request to change exposure, prior to submission
// to the execution service. A missing limit price means market execution.
type OrderIntent struct {
	StrategyName string    `json:"strategy_name" validate:"required"`
	Symbol       string    `json:"symbol" validate:"required"`
	Direction    Direction `json:"direction" validate:"required,oneof=LONG SHORT"`
	Action       Action    `json:"action" validate:"required,oneof=OPEN CLOSE CANCEL"`
	Volume       float64   `json:"volume" validate:"required,gt=0"`
	// LimitPrice is absent for market orders.
	LimitPrice optional.Option[float64] `json:"limit_price"`
	Time       time.Time                `json:"time" validate:"required"`
	// Stop marks the intent as a stop order for the execution service.
	Stop bool `json:"stop"`
	// Reason is a human readable description of why the intent was issued.
	Reason string `json:"reason"`
}

// Validate validates the OrderIntent struct.
func (o *OrderIntent) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderIntent, "invalid order intent", err)
	}

	if o.LimitPrice.IsSome() && o.LimitPrice.Unwrap() <= 0 {
		return errors.New(errors.ErrCodeInvalidOrderIntent, "limit price must be positive")
	}

	return nil
}

// IsMarket reports whether the intent should execute at market.
func (o *OrderIntent) IsMarket() bool {
	return o.LimitPrice.IsNone()
}

// DecisionAction is the shaped action produced by the decision pipeline.
type DecisionAction string

const (
	DecisionBuy        DecisionAction = "BUY"
	DecisionSell       DecisionAction = "SELL"
	DecisionCloseLong  DecisionAction = "CLOSE_LONG"
	DecisionCloseShort DecisionAction = "CLOSE_SHORT"
	DecisionHold       DecisionAction = "HOLD"
)

// Decision is a sized, filtered, direction adjusted trade decision.
type Decision struct {
	Action     DecisionAction `json:"action"`
	Quantity   int            `json:"quantity"`
	Price      float64        `json:"price"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
}
