package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"dualtrend/internal/exchange"
	"dualtrend/internal/risk"
	"dualtrend/internal/strategy"
)

type orderClient interface {
	CreateMarketOrder(symbol string, side string, amount float64, options ...ccxt.CreateMarketOrderOptions) (ccxt.Order, error)
	CreateLimitOrder(symbol string, side string, amount float64, price float64, options ...ccxt.CreateLimitOrderOptions) (ccxt.Order, error)
}

// Executor 将策略信号与风控结论转化为具体下单操作。
type Executor struct {
	client   orderClient
	symbol   string
	logger   *zap.Logger
	maxRetry int
}

// NewExecutor 创建执行器。
func NewExecutor(client orderClient, symbol string, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		client:   client,
		symbol:   symbol,
		logger:   logger,
		maxRetry: 3,
	}
}

// BuildPlan 根据执行计划生成委托列表。
func (e *Executor) BuildPlan(plan ExecutionPlan) ([]OrderRequest, error) {
	return buildOrderRequests(plan)
}

// Execute 提交订单并处理异常。
func (e *Executor) Execute(ctx context.Context, orders []OrderRequest) (Result, error) {
	result := Result{
		Orders:        orders,
		Executed:      false,
		ExecutionTime: time.Now().UTC(),
		Notes:         make([]string, 0),
	}

	if len(orders) == 0 {
		return result, nil
	}

	for _, order := range orders {
		if err := e.submitOrder(ctx, order); err != nil {
			result.Notes = append(result.Notes, fmt.Sprintf("下单失败: %v", err))
			return result, err
		}
	}

	result.Executed = true
	return result, nil
}

func (e *Executor) submitOrder(ctx context.Context, order OrderRequest) error {
	var err error
	for attempt := 1; attempt <= e.maxRetry; attempt++ {
		params := order.Params
		switch order.Type {
		case "market":
			var opts []ccxt.CreateMarketOrderOptions
			if len(params) > 0 {
				opts = append(opts, ccxt.WithCreateMarketOrderParams(params))
			}
			_, err = e.client.CreateMarketOrder(e.symbol, string(order.Side), order.Amount, opts...)
		case "limit":
			var opts []ccxt.CreateLimitOrderOptions
			if len(params) > 0 {
				opts = append(opts, ccxt.WithCreateLimitOrderParams(params))
			}
			_, err = e.client.CreateLimitOrder(e.symbol, string(order.Side), order.Amount, order.Price, opts...)
		default:
			return fmt.Errorf("execution: 不支持的订单类型 %s", order.Type)
		}

		if err == nil {
			return nil
		}

		if !exchange.IsRetryable(err) {
			return err
		}

		wait := time.Duration(attempt) * time.Second
		e.logger.Warn("下单失败，准备重试",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("execution: 重试后仍下单失败: %w", err)
}

func sideForDirection(direction strategy.Position) OrderSide {
	if direction == strategy.PositionShort {
		return OrderSideSell
	}
	return OrderSideBuy
}

func oppositeSide(side OrderSide) OrderSide {
	if side == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

func buildOrderRequests(plan ExecutionPlan) ([]OrderRequest, error) {
	if plan.MarketPrice <= 0 {
		return nil, errors.New("execution: 市场价格无效")
	}
	if plan.Direction == strategy.PositionFlat {
		return nil, errors.New("execution: 执行计划缺少方向")
	}

	switch plan.Action {
	case ActionOpen:
		if plan.RiskResult.Status != risk.StatusProceed {
			return nil, errors.New("execution: 风控未允许执行")
		}
		if plan.Quantity <= 0 {
			return nil, fmt.Errorf("execution: 下单数量无效 quantity=%.6f", plan.Quantity)
		}

		params := map[string]interface{}{
			"reduceOnly": false,
		}
		if plan.StopLoss > 0 {
			params["stopLossPrice"] = plan.StopLoss
		}
		if plan.TakeProfit > 0 {
			params["takeProfitPrice"] = plan.TakeProfit
		}

		return []OrderRequest{{
			Type:      "market",
			Side:      sideForDirection(plan.Direction),
			Amount:    plan.Quantity,
			Price:     plan.MarketPrice,
			Params:    params,
			IsTrigger: plan.StopLoss > 0 || plan.TakeProfit > 0,
		}}, nil

	case ActionClose:
		if plan.Quantity <= 0 {
			return nil, fmt.Errorf("execution: 平仓数量无效 quantity=%.6f", plan.Quantity)
		}

		return []OrderRequest{{
			Type:       "market",
			Side:       oppositeSide(sideForDirection(plan.Direction)),
			Amount:     plan.Quantity,
			Price:      plan.MarketPrice,
			ReduceOnly: true,
			CloseAll:   true,
			Params: map[string]interface{}{
				"reduceOnly":    true,
				"closePosition": true,
			},
		}}, nil

	default:
		return nil, fmt.Errorf("execution: 不支持的操作类型 %q", plan.Action)
	}
}
