package exchange

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dualtrend/internal/market"
)

// MarketDataService 聚合双周期K线数据获取。
type MarketDataService struct {
	client *Client
	logger *zap.Logger
}

// NewMarketDataService 创建市场数据服务。
func NewMarketDataService(client *Client, logger *zap.Logger) *MarketDataService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketDataService{
		client: client,
		logger: logger,
	}
}

// GetSnapshot 并发拉取小时线与十分钟线K线，构成一次完整的市场数据快照。
func (s *MarketDataService) GetSnapshot(ctx context.Context, req SnapshotRequest) (MarketSnapshot, error) {
	defaultReq := DefaultSnapshotRequest()
	if req.SlowLimit <= 0 {
		req.SlowLimit = defaultReq.SlowLimit
	}
	if req.FastLimit <= 0 {
		req.FastLimit = defaultReq.FastLimit
	}

	var (
		slowCandles []market.Candle
		fastCandles []market.Candle
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		data, err := s.client.FetchCandles(groupCtx, market.TimeframeSlow, int64(req.SlowLimit))
		if err != nil {
			return err
		}
		slowCandles = data
		return nil
	})

	group.Go(func() error {
		data, err := s.client.FetchCandles(groupCtx, market.TimeframeFast, int64(req.FastLimit))
		if err != nil {
			return err
		}
		fastCandles = data
		return nil
	})

	if err := group.Wait(); err != nil {
		return MarketSnapshot{}, err
	}

	snapshot := MarketSnapshot{
		Symbol:      s.client.Symbol(),
		SlowCandles: slowCandles,
		FastCandles: fastCandles,
		RetrievedAt: time.Now().UTC(),
	}

	s.logger.Debug("市场数据快照获取完成",
		zap.String("symbol", snapshot.Symbol),
		zap.Time("retrieved_at", snapshot.RetrievedAt),
		zap.Int("slow_candle_count", len(snapshot.SlowCandles)),
		zap.Int("fast_candle_count", len(snapshot.FastCandles)),
	)

	return snapshot, nil
}
