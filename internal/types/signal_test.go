package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/helix-quant/cta-trading/pkg/errors"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func (suite *SignalTestSuite) validIntent() OrderIntent {
	return OrderIntent{
		StrategyName: "ma_cross",
		Symbol:       "rb2410",
		Direction:    DirectionLong,
		Action:       ActionOpen,
		Volume:       2,
		LimitPrice:   optional.None[float64](),
		Time:         time.Now(),
		Stop:         false,
		Reason:       "test",
	}
}

func (suite *SignalTestSuite) TestValidIntent() {
	intent := suite.validIntent()
	suite.NoError(intent.Validate())
}

func (suite *SignalTestSuite) TestIntentMissingSymbol() {
	intent := suite.validIntent()
	intent.Symbol = ""

	err := intent.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrderIntent))
}

func (suite *SignalTestSuite) TestIntentInvalidDirection() {
	intent := suite.validIntent()
	intent.Direction = Direction("SIDEWAYS")
	suite.Error(intent.Validate())
}

func (suite *SignalTestSuite) TestIntentZeroVolume() {
	intent := suite.validIntent()
	intent.Volume = 0
	suite.Error(intent.Validate())
}

func (suite *SignalTestSuite) TestIntentNegativeLimitPrice() {
	intent := suite.validIntent()
	intent.LimitPrice = optional.Some(-1.0)
	suite.Error(intent.Validate())
}

func (suite *SignalTestSuite) TestIsMarket() {
	intent := suite.validIntent()
	suite.True(intent.IsMarket())

	intent.LimitPrice = optional.Some(3500.0)
	suite.False(intent.IsMarket())
}
