package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeStrategyNotFound, "no strategy named %s", "ma_cross")
	suite.NotNil(err)
	suite.Equal(ErrCodeStrategyNotFound, err.Code)
	suite.Equal("no strategy named ma_cross", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodePositionQueryFailed, "positions query failed", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodePositionQueryFailed, err.Code)
	suite.Equal("positions query failed", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodePositionQueryFailed, cause, "positions query failed for %s", "rb2410")
	suite.NotNil(err)
	suite.Equal(ErrCodePositionQueryFailed, err.Code)
	suite.Equal("positions query failed for rb2410", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeTickFetchFailed, "tick fetch failed", cause)
	suite.Equal("[200] tick fetch failed: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeSignalDeliveryFailed, "send failed", cause)
	suite.Equal(cause, errors.Unwrap(err))
}

func (suite *ErrorTestSuite) TestIsMatchesWrappedSentinel() {
	sentinel := errors.New("connection refused")
	err := Wrap(ErrCodeSignalDeliveryFailed, "send failed", fmt.Errorf("dial: %w", sentinel))
	suite.True(Is(err, sentinel))
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeEngineStartupFailed, "health check exhausted")
	suite.Equal(ErrCodeEngineStartupFailed, GetCode(err))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain")))
	suite.Equal(ErrCodeUnknown, GetCode(nil))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := fmt.Errorf("outer: %w", New(ErrCodeStrategyAlreadyExists, "duplicate name"))
	suite.True(HasCode(err, ErrCodeStrategyAlreadyExists))
	suite.False(HasCode(err, ErrCodeStrategyNotFound))
}

func (suite *ErrorTestSuite) TestAs() {
	var target *Error

	err := fmt.Errorf("outer: %w", New(ErrCodeSignalRejected, "rejected by service"))
	suite.True(As(err, &target))
	suite.Equal(ErrCodeSignalRejected, target.Code)
}
