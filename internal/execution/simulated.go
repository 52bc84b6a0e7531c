package execution

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SimulatedExecutor 只记录不真正下单，用于回测与空跑模式。
type SimulatedExecutor struct {
	logger *zap.Logger

	mu       sync.Mutex
	executed []OrderRequest
}

// NewSimulatedExecutor 创建模拟执行器。
func NewSimulatedExecutor(logger *zap.Logger) *SimulatedExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedExecutor{logger: logger}
}

// BuildPlan 与真实执行器共用同一套委托生成逻辑。
func (s *SimulatedExecutor) BuildPlan(plan ExecutionPlan) ([]OrderRequest, error) {
	return buildOrderRequests(plan)
}

// Execute 记录委托并立即返回成功。
func (s *SimulatedExecutor) Execute(ctx context.Context, orders []OrderRequest) (Result, error) {
	result := Result{
		Orders:        orders,
		ExecutionTime: time.Now().UTC(),
		Notes:         make([]string, 0),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if len(orders) == 0 {
		return result, nil
	}

	s.mu.Lock()
	s.executed = append(s.executed, orders...)
	s.mu.Unlock()

	for _, order := range orders {
		s.logger.Info("模拟下单",
			zap.String("type", order.Type),
			zap.String("side", string(order.Side)),
			zap.Float64("amount", order.Amount),
			zap.Float64("price", order.Price),
			zap.Bool("reduce_only", order.ReduceOnly),
		)
	}

	result.Executed = true
	return result, nil
}

// ExecutedOrders 返回已记录的委托副本。
func (s *SimulatedExecutor) ExecutedOrders() []OrderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]OrderRequest(nil), s.executed...)
}

var _ Trader = (*SimulatedExecutor)(nil)
