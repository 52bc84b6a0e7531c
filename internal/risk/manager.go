package risk

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"dualtrend/internal/config"
	"dualtrend/internal/store"
	"dualtrend/internal/strategy"
)

// Manager 对策略信号执行规则化风控：日度亏损限制、净值回撤限制与
// 仓位上限。信号本身由策略产生，风控只决定放行与仓位大小。
type Manager struct {
	cfg     config.RiskConfig
	tracker *DailyTracker
	logger  *zap.Logger

	peakEquity float64
}

// NewManager 创建风险管理器。
func NewManager(cfg config.RiskConfig, store *store.Store, logger *zap.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("risk: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tracker, err := NewDailyTracker(store.DB(), cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:     cfg,
		tracker: tracker,
		logger:  logger,
	}, nil
}

// Evaluate 根据当前信号与账户状况给出风控结论。离场类操作不经过风控，
// 仅入场信号需要放行。
func (m *Manager) Evaluate(ctx context.Context, input EvaluationInput) (EvaluationResult, error) {
	status, err := m.tracker.Update(ctx, input.Account.Timestamp, input.Account.Equity)
	if err != nil {
		return EvaluationResult{}, err
	}

	result := EvaluationResult{
		Symbol:      input.Symbol,
		Status:      StatusDeny,
		DailyStatus: status,
		Notes:       make([]string, 0, 2),
	}

	if input.Signal == strategy.SignalNone {
		result.Notes = append(result.Notes, "无入场信号，无需评估。")
		return result, nil
	}

	if status.Halted {
		result.Notes = append(result.Notes, "当日累计亏损已达到限制，停止开仓。")
		return result, nil
	}

	if input.Account.Equity <= 0 {
		result.Notes = append(result.Notes, "账户净值无效，无法评估仓位。")
		return result, nil
	}

	if input.MarketPrice <= 0 {
		result.Notes = append(result.Notes, "缺少有效的市价，无法计算仓位。")
		return result, nil
	}

	if m.peakEquity > 0 && m.cfg.MaxDrawdownPercent > 0 {
		drawdown := (m.peakEquity - input.Account.Equity) / m.peakEquity * 100
		if drawdown >= m.cfg.MaxDrawdownPercent {
			result.Notes = append(result.Notes,
				fmt.Sprintf("净值回撤 %.2f%% 已达到上限 %.2f%%，停止开仓。", drawdown, m.cfg.MaxDrawdownPercent))
			m.logger.Warn("触发回撤限制",
				zap.Float64("drawdown_percent", drawdown),
				zap.Float64("peak_equity", m.peakEquity),
			)
			return result, nil
		}
	}
	if input.Account.Equity > m.peakEquity {
		m.peakEquity = input.Account.Equity
	}

	quantity, notional := m.sizePosition(input)
	if quantity <= 0 {
		result.Notes = append(result.Notes, "计算仓位为零，放弃开仓。")
		return result, nil
	}

	result.Status = StatusProceed
	result.PositionFraction = notional / input.Account.Equity
	result.Quantity = quantity
	result.RiskAmount = notional
	result.Notes = append(result.Notes,
		fmt.Sprintf("放行 %s 信号，仓位比例 %.2f%%，名义金额约为 %.2f。",
			input.Signal.String(), result.PositionFraction*100, notional))

	return result, nil
}

// sizePosition 计算建议仓位。优先按单笔风险预算除以止损距离定量，
// 名义金额不超过净值乘以仓位上限；缺少止损价时退化为固定比例仓位。
func (m *Manager) sizePosition(input EvaluationInput) (quantity, notional float64) {
	equity := input.Account.Equity
	price := input.MarketPrice

	maxFraction := m.cfg.MaxPositionFraction
	if maxFraction <= 0 || maxFraction > 1 {
		maxFraction = 0.10
	}
	capNotional := equity * maxFraction

	stopDistance := price - input.StopPrice
	if stopDistance < 0 {
		stopDistance = -stopDistance
	}

	if input.StopPrice > 0 && stopDistance > 0 && m.cfg.RiskPerTradePercent > 0 {
		budget := equity * m.cfg.RiskPerTradePercent / 100
		quantity = budget / stopDistance
		notional = quantity * price
		if notional > capNotional {
			quantity = capNotional / price
			notional = capNotional
		}
		return quantity, notional
	}

	return capNotional / price, capNotional
}

// UpdateLimits 在运行期调整风控参数。校验失败时保留原有参数。
func (m *Manager) UpdateLimits(cfg config.RiskConfig) error {
	if cfg.RiskPerTradePercent <= 0 || cfg.RiskPerTradePercent > 100 {
		return errors.New("risk: risk_per_trade_percent 必须位于(0,100]")
	}
	if cfg.MaxPositionFraction <= 0 || cfg.MaxPositionFraction > 1 {
		return errors.New("risk: max_position_fraction 必须位于(0,1]")
	}
	if cfg.MaxDailyLossPercent <= 0 || cfg.MaxDailyLossPercent > 100 {
		return errors.New("risk: max_daily_loss_percent 必须位于(0,100]")
	}
	if cfg.MaxDrawdownPercent <= 0 || cfg.MaxDrawdownPercent > 100 {
		return errors.New("risk: max_drawdown_percent 必须位于(0,100]")
	}
	if cfg.DailyResetHour < 0 || cfg.DailyResetHour > 23 {
		return errors.New("risk: daily_reset_hour 必须位于[0,23]")
	}

	m.cfg = cfg
	m.tracker.cfg = cfg
	m.logger.Info("风控参数已更新",
		zap.Float64("risk_per_trade_percent", cfg.RiskPerTradePercent),
		zap.Float64("max_position_fraction", cfg.MaxPositionFraction),
	)
	return nil
}

// ResetPeak 清除回撤跟踪基准，通常在重新注资后调用。
func (m *Manager) ResetPeak() {
	m.peakEquity = 0
}
