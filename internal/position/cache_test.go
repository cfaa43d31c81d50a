package position

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/helix-quant/cta-trading/internal/logger"
	"github.com/helix-quant/cta-trading/internal/types"
	pkgerrors "github.com/helix-quant/cta-trading/pkg/errors"
)

// fakeQuerier is a hand-rolled execution service stand-in that counts queries.
type fakeQuerier struct {
	snapshot *types.PositionSnapshot
	err      error
	queries  int
}

func (f *fakeQuerier) GetPositions(_, _ string) (*types.PositionSnapshot, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}

	if f.snapshot == nil {
		return nil, nil
	}

	copied := *f.snapshot
	copied.FetchedAt = time.Now()

	return &copied, nil
}

type CacheTestSuite struct {
	suite.Suite
	querier *fakeQuerier
	cache   *Cache
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (suite *CacheTestSuite) SetupTest() {
	suite.querier = &fakeQuerier{
		snapshot: &types.PositionSnapshot{Symbol: "rb2410", Net: 0},
	}
	suite.cache = NewCache(suite.querier, DefaultTTL, logger.NewNopLogger())
}

func intentFor(action types.Action, direction types.Direction, volume float64) types.OrderIntent {
	return types.OrderIntent{
		StrategyName: "ma_cross",
		Symbol:       "rb2410",
		Direction:    direction,
		Action:       action,
		Volume:       volume,
		Time:         time.Now(),
	}
}

func (suite *CacheTestSuite) TestGetWithinTTLUsesCachedValue() {
	_, err := suite.cache.Get("ma_cross", "rb2410")
	suite.NoError(err)
	suite.Equal(1, suite.querier.queries)

	// Second read inside the TTL must not hit the querier.
	_, err = suite.cache.Get("ma_cross", "rb2410")
	suite.NoError(err)
	suite.Equal(1, suite.querier.queries)
}

func (suite *CacheTestSuite) TestGetAfterTTLQueriesAgain() {
	cache := NewCache(suite.querier, 10*time.Millisecond, logger.NewNopLogger())

	_, err := cache.Get("ma_cross", "rb2410")
	suite.NoError(err)

	time.Sleep(20 * time.Millisecond)

	_, err = cache.Get("ma_cross", "rb2410")
	suite.NoError(err)
	suite.Equal(2, suite.querier.queries)
}

func (suite *CacheTestSuite) TestGetReturnsStaleOnQueryFailure() {
	cache := NewCache(suite.querier, 10*time.Millisecond, logger.NewNopLogger())

	first, err := cache.Get("ma_cross", "rb2410")
	suite.NoError(err)
	suite.NotNil(first)

	time.Sleep(20 * time.Millisecond)
	suite.querier.err = errors.New("connection refused")

	stale, err := cache.Get("ma_cross", "rb2410")
	suite.Error(err)
	suite.Equal(first, stale)
}

func (suite *CacheTestSuite) TestFlatPositionIsCached() {
	suite.querier.snapshot = nil

	snapshot, err := suite.cache.Get("ma_cross", "rb2410")
	suite.NoError(err)
	suite.NotNil(snapshot)
	suite.Equal(0.0, snapshot.Net)

	_, err = suite.cache.Get("ma_cross", "rb2410")
	suite.NoError(err)
	// The explicit flat snapshot honors the TTL too.
	suite.Equal(1, suite.querier.queries)
}

func (suite *CacheTestSuite) TestPreTradeCheckAcceptsWithinLimit() {
	err := suite.cache.PreTradeCheck(intentFor(types.ActionOpen, types.DirectionLong, 2), 5)
	suite.NoError(err)
}

func (suite *CacheTestSuite) TestPreTradeCheckAcceptsAtExactLimit() {
	err := suite.cache.PreTradeCheck(intentFor(types.ActionOpen, types.DirectionLong, 5), 5)
	suite.NoError(err)
}

func (suite *CacheTestSuite) TestPreTradeCheckRejectsOverLimit() {
	suite.querier.snapshot.Net = 5

	// Warm the cache so the projection sees the current position.
	_, err := suite.cache.Get("ma_cross", "rb2410")
	suite.Require().NoError(err)

	err = suite.cache.PreTradeCheck(intentFor(types.ActionOpen, types.DirectionLong, 2), 5)
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodePositionLimitHit))
}

func (suite *CacheTestSuite) TestPreTradeCheckBoundaryIssuesExactlyOneQuery() {
	// Warm the cache; the boundary check must then issue exactly one
	// synchronous refresh regardless of TTL freshness.
	_, err := suite.cache.Get("ma_cross", "rb2410")
	suite.Require().NoError(err)
	suite.Equal(1, suite.querier.queries)

	err = suite.cache.PreTradeCheck(intentFor(types.ActionOpen, types.DirectionLong, 5), 5)
	suite.NoError(err)
	suite.Equal(2, suite.querier.queries)
}

func (suite *CacheTestSuite) TestPreTradeCheckNonBoundaryWithinTTLIssuesNoQuery() {
	_, err := suite.cache.Get("ma_cross", "rb2410")
	suite.Require().NoError(err)
	suite.Equal(1, suite.querier.queries)

	err = suite.cache.PreTradeCheck(intentFor(types.ActionOpen, types.DirectionLong, 1), 5)
	suite.NoError(err)
	suite.Equal(1, suite.querier.queries)
}

func (suite *CacheTestSuite) TestPreTradeCheckFailsSafeOnBoundaryQueryFailure() {
	suite.querier.err = errors.New("connection refused")

	err := suite.cache.PreTradeCheck(intentFor(types.ActionOpen, types.DirectionLong, 5), 5)
	suite.Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodePositionQueryFailed))
}

func (suite *CacheTestSuite) TestPreTradeCheckToleratesQueryFailureAwayFromLimit() {
	suite.querier.err = errors.New("connection refused")

	err := suite.cache.PreTradeCheck(intentFor(types.ActionOpen, types.DirectionLong, 1), 10)
	suite.NoError(err)
}

func (suite *CacheTestSuite) TestPreTradeCheckIgnoresCancel() {
	suite.querier.err = errors.New("connection refused")

	err := suite.cache.PreTradeCheck(intentFor(types.ActionCancel, types.DirectionLong, 1), 1)
	suite.NoError(err)
	suite.Equal(0, suite.querier.queries)
}

func (suite *CacheTestSuite) TestRefreshAsyncEventuallyUpdates() {
	suite.cache.RefreshAsync("ma_cross", "rb2410")

	suite.Eventually(func() bool {
		snapshot, err := suite.cache.Get("ma_cross", "rb2410")

		return err == nil && snapshot != nil
	}, time.Second, 10*time.Millisecond)
}

func (suite *CacheTestSuite) TestInvalidateForcesRequery() {
	_, err := suite.cache.Get("ma_cross", "rb2410")
	suite.Require().NoError(err)

	suite.cache.Invalidate("ma_cross", "rb2410")

	_, err = suite.cache.Get("ma_cross", "rb2410")
	suite.NoError(err)
	suite.Equal(2, suite.querier.queries)
}
