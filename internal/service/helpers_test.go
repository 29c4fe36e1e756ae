package service

import (
	"context"
	"sync"
	"testing"

	"github.com/dushixiang/spectrum/internal/config"
	"github.com/dushixiang/spectrum/internal/models"
	"github.com/dushixiang/spectrum/pkg/exchange"
	"github.com/dushixiang/spectrum/pkg/market"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		models.Strategy{}, models.Account{}, models.Position{},
		models.Order{}, models.Trade{},
		models.PerformancePoint{}, models.Decision{}, models.RecommenderLog{},
	)
	if err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	conf := &config.Config{}
	conf.Normalize()
	// 测试中关闭全部摩擦，成交价等于参考价
	conf.Trading.Realism = &exchange.RealismConfig{}
	return conf
}

// fakeProvider 固定价格行情源，不提供历史K线
type fakeProvider struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newFakeProvider(prices map[string]float64) *fakeProvider {
	return &fakeProvider{prices: prices}
}

func (p *fakeProvider) GetReferencePrice(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[symbol]
	if !ok {
		return 0, market.ErrUnavailable
	}
	return price, nil
}

func (p *fakeProvider) GetHistory(_ context.Context, _ string, _ int) ([]market.Bar, error) {
	return nil, market.ErrUnavailable
}

func (p *fakeProvider) setPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// fakeRecommender 返回预设建议
// gate 非空时，每次调用阻塞到该通道关闭为止
type fakeRecommender struct {
	mu    sync.Mutex
	recs  []Recommendation
	err   error
	calls int
	gate  chan struct{}
}

func (f *fakeRecommender) Recommend(_ context.Context, _ *RecommendContext) ([]Recommendation, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	err := f.err
	recs := make([]Recommendation, len(f.recs))
	copy(recs, f.recs)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (f *fakeRecommender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	db          *gorm.DB
	conf        *config.Config
	provider    *fakeProvider
	recommender *fakeRecommender
	strategies  *StrategyService
	performance *PerformanceService
	scheduler   *RebalanceScheduler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	conf := testConfig()
	provider := newFakeProvider(map[string]float64{
		"00700": 350.0,
		"00941": 70.0,
	})
	recommender := &fakeRecommender{}
	logger := zap.NewNop()

	strategies := NewStrategyService(db, provider, conf, logger)
	indicators := NewIndicatorService(provider, logger)
	performance := NewPerformanceService(db, logger)
	scheduler := NewRebalanceScheduler(db, conf, strategies, indicators, performance, recommender, nil, logger)

	return &testEnv{
		db:          db,
		conf:        conf,
		provider:    provider,
		recommender: recommender,
		strategies:  strategies,
		performance: performance,
		scheduler:   scheduler,
	}
}

func (e *testEnv) createStrategy(t *testing.T, params CreateStrategyParams) *models.Strategy {
	t.Helper()
	if params.Name == "" {
		params.Name = "测试策略"
	}
	if len(params.Symbols) == 0 {
		params.Symbols = []string{"00700", "00941"}
	}
	strategy, err := e.strategies.CreateStrategy(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateStrategy: %v", err)
	}
	return strategy
}

func (e *testEnv) markRunning(t *testing.T, strategyID string) {
	t.Helper()
	if err := e.strategies.StrategyRepo.UpdateStatus(context.Background(), strategyID, models.StrategyStatusRunning); err != nil {
		t.Fatalf("mark running: %v", err)
	}
}
