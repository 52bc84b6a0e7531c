package journal

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"dualtrend/internal/store"
)

// Service 负责持久化交易流水与活动日志。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化交易流水服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("journal: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS trades (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	status TEXT NOT NULL,
	entry_time TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_time TEXT,
	exit_price REAL,
	pnl_percent REAL NOT NULL DEFAULT 0,
	pnl_dollar REAL NOT NULL DEFAULT 0,
	exit_reason TEXT
);
CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);

CREATE TABLE IF NOT EXISTS activity_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_log_type ON activity_log(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("journal: 初始化表失败: %w", err)
	}
	return nil
}

// OpenTrade 写入一条建仓记录并返回其 ID。
func (s *Service) OpenTrade(ctx context.Context, trade TradeRecord) (int64, error) {
	if trade.EntryTime.IsZero() {
		trade.EntryTime = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (symbol, direction, status, entry_time, entry_price) VALUES (?, ?, ?, ?, ?)`,
		trade.Symbol, trade.Direction, string(TradeOpen),
		trade.EntryTime.UTC().Format(time.RFC3339), trade.EntryPrice,
	)
	if err != nil {
		return 0, fmt.Errorf("journal: 写入建仓记录失败: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal: 获取建仓记录ID失败: %w", err)
	}
	return id, nil
}

// CloseTrade 将指定交易标记为已平仓并补齐离场字段。
func (s *Service) CloseTrade(ctx context.Context, id int64, exitTime time.Time, exitPrice, pnlPercent, pnlDollar float64, reason string) error {
	if exitTime.IsZero() {
		exitTime = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE trades SET status = ?, exit_time = ?, exit_price = ?, pnl_percent = ?, pnl_dollar = ?, exit_reason = ?
		 WHERE id = ? AND status = ?`,
		string(TradeClosed), exitTime.UTC().Format(time.RFC3339),
		exitPrice, pnlPercent, pnlDollar, reason, id, string(TradeOpen),
	)
	if err != nil {
		return fmt.Errorf("journal: 更新平仓记录失败: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("journal: 读取更新行数失败: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("journal: 交易 %d 不存在或已平仓", id)
	}
	return nil
}

// RecentTrades 按时间倒序返回最近的交易记录。
func (s *Service) RecentTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, direction, status, entry_time, entry_price,
		        COALESCE(exit_time, ''), COALESCE(exit_price, 0),
		        pnl_percent, pnl_dollar, COALESCE(exit_reason, '')
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询交易记录失败: %w", err)
	}
	defer rows.Close()

	trades := make([]TradeRecord, 0, limit)
	for rows.Next() {
		var (
			trade     TradeRecord
			status    string
			entryTime string
			exitTime  string
		)
		if scanErr := rows.Scan(&trade.ID, &trade.Symbol, &trade.Direction, &status,
			&entryTime, &trade.EntryPrice, &exitTime, &trade.ExitPrice,
			&trade.PnlPercent, &trade.PnlDollar, &trade.ExitReason); scanErr != nil {
			return nil, fmt.Errorf("journal: 解析交易记录失败: %w", scanErr)
		}

		trade.Status = TradeStatus(status)
		trade.EntryTime = parseTime(entryTime)
		if exitTime != "" {
			trade.ExitTime = parseTime(exitTime)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 读取交易记录失败: %w", err)
	}
	return trades, nil
}

// Summary 聚合已平仓交易的整体表现。
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var summary Summary

	var grossProfit, grossLoss float64
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN pnl_percent > 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(pnl_dollar), 0),
		        COALESCE(SUM(CASE WHEN pnl_dollar > 0 THEN pnl_dollar ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN pnl_dollar < 0 THEN -pnl_dollar ELSE 0 END), 0),
		        COALESCE(MAX(pnl_dollar), 0),
		        COALESCE(MIN(pnl_dollar), 0)
		 FROM trades WHERE status = ?`, string(TradeClosed))
	if err := row.Scan(&summary.TotalTrades, &summary.WinningTrades, &summary.TotalPnlDollar,
		&grossProfit, &grossLoss, &summary.LargestWin, &summary.LargestLoss); err != nil {
		return Summary{}, fmt.Errorf("journal: 聚合交易统计失败: %w", err)
	}

	if summary.TotalTrades > 0 {
		summary.WinRatePercent = float64(summary.WinningTrades) / float64(summary.TotalTrades) * 100
	}
	// 无亏损时盈亏比记为0：+Inf无法被encoding/json序列化。
	if grossLoss > 0 {
		summary.ProfitFactor = grossProfit / grossLoss
	}
	return summary, nil
}

// ExportCSV 将全部交易记录按时间升序导出为CSV。
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	trades, err := s.RecentTrades(ctx, 1<<30)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := []string{"id", "symbol", "direction", "status", "entry_time", "entry_price",
		"exit_time", "exit_price", "pnl_percent", "pnl_dollar", "exit_reason"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("journal: 写入CSV表头失败: %w", err)
	}

	for i := len(trades) - 1; i >= 0; i-- {
		trade := trades[i]
		exitTime := ""
		if !trade.ExitTime.IsZero() {
			exitTime = trade.ExitTime.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatInt(trade.ID, 10),
			trade.Symbol,
			trade.Direction,
			string(trade.Status),
			trade.EntryTime.UTC().Format(time.RFC3339),
			strconv.FormatFloat(trade.EntryPrice, 'f', -1, 64),
			exitTime,
			strconv.FormatFloat(trade.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(trade.PnlPercent, 'f', -1, 64),
			strconv.FormatFloat(trade.PnlDollar, 'f', -1, 64),
			trade.ExitReason,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("journal: 写入CSV记录失败: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("journal: 导出CSV失败: %w", err)
	}
	return nil
}

// Record 写入单条活动日志。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("journal: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO activity_log (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("journal: 写入事件失败: %w", err)
	}
	return nil
}

// RecordSignal 记录一次信号判定，失败时仅告警不中断主流程。
func (s *Service) RecordSignal(ctx context.Context, payload interface{}) {
	if err := s.Record(ctx, Event{Type: EventSignal, Payload: payload}); err != nil {
		s.logger.Warn("记录信号事件失败", zap.Error(err))
	}
}

// RecordError 记录异常，失败时仅告警不中断主流程。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Context: ctxMap,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	if recErr := s.Record(ctx, Event{Type: EventError, Payload: payload}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ListEvents 按类型检索最近事件。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, payload, created_at FROM activity_log`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("journal: 解析事件失败: %w", scanErr)
		}

		events = append(events, Event{
			Type:      EventType(typ),
			Timestamp: parseTime(created),
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 读取事件失败: %w", err)
	}
	return events, nil
}

func parseTime(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Now().UTC()
	}
	return ts
}
