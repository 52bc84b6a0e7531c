package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"dualtrend/internal/config"
	"dualtrend/internal/market"
)

// Cache 将K线数据按交易对与周期落盘为CSV，避免重复拉取历史数据。
// 写入采用合并语义：与已有数据按时间戳去重后整体重写。
type Cache struct {
	dir    string
	logger *zap.Logger
}

// Info 描述单个缓存文件的覆盖范围。
type Info struct {
	Count int
	First time.Time
	Last  time.Time
}

// New 创建缓存并确保目录存在。
func New(cfg config.CacheConfig, logger *zap.Logger) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, errors.New("cache: dir 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: 创建目录 %q 失败: %w", cfg.Dir, err)
	}

	return &Cache{
		dir:    cfg.Dir,
		logger: logger,
	}, nil
}

// Save 将K线合并写入缓存，时间戳重复时以新数据为准。
func (c *Cache) Save(symbol, timeframe string, candles []market.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	existing, err := c.readAll(symbol, timeframe)
	if err != nil {
		return err
	}

	merged := make(map[int64]market.Candle, len(existing)+len(candles))
	for _, candle := range existing {
		merged[candle.Timestamp.UnixMilli()] = candle
	}
	for _, candle := range candles {
		merged[candle.Timestamp.UTC().UnixMilli()] = candle
	}

	out := make([]market.Candle, 0, len(merged))
	for _, candle := range merged {
		out = append(out, candle)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	if err := c.writeAll(symbol, timeframe, out); err != nil {
		return err
	}

	c.logger.Debug("K线缓存已更新",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("added", len(candles)),
		zap.Int("total", len(out)),
	)
	return nil
}

// Load 读取指定时间范围内的K线，时间升序。零值边界表示不限制。
func (c *Cache) Load(symbol, timeframe string, from, to time.Time) ([]market.Candle, error) {
	candles, err := c.readAll(symbol, timeframe)
	if err != nil {
		return nil, err
	}

	out := make([]market.Candle, 0, len(candles))
	for _, candle := range candles {
		if !from.IsZero() && candle.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && candle.Timestamp.After(to) {
			continue
		}
		out = append(out, candle)
	}
	return out, nil
}

// Stat 返回缓存覆盖范围，缓存不存在时返回零值。
func (c *Cache) Stat(symbol, timeframe string) (Info, error) {
	candles, err := c.readAll(symbol, timeframe)
	if err != nil {
		return Info{}, err
	}
	if len(candles) == 0 {
		return Info{}, nil
	}

	return Info{
		Count: len(candles),
		First: candles[0].Timestamp,
		Last:  candles[len(candles)-1].Timestamp,
	}, nil
}

// Clear 删除指定缓存文件，不存在时不报错。
func (c *Cache) Clear(symbol, timeframe string) error {
	path := c.filePath(symbol, timeframe)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cache: 删除缓存 %q 失败: %w", path, err)
	}
	return nil
}

func (c *Cache) readAll(symbol, timeframe string) ([]market.Candle, error) {
	path := c.filePath(symbol, timeframe)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: 打开缓存 %q 失败: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cache: 解析缓存 %q 失败: %w", path, err)
	}

	candles := make([]market.Candle, 0, len(records))
	for i, record := range records {
		if i == 0 {
			// 表头
			continue
		}
		candle, parseErr := parseRecord(record)
		if parseErr != nil {
			return nil, fmt.Errorf("cache: 缓存 %q 第 %d 行损坏: %w", path, i+1, parseErr)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func (c *Cache) writeAll(symbol, timeframe string, candles []market.Candle) error {
	path := c.filePath(symbol, timeframe)
	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("cache: 创建缓存文件失败: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"timestamp_ms", "open", "high", "low", "close", "volume"}); err != nil {
		_ = file.Close()
		return fmt.Errorf("cache: 写入表头失败: %w", err)
	}

	for _, candle := range candles {
		record := []string{
			strconv.FormatInt(candle.Timestamp.UTC().UnixMilli(), 10),
			strconv.FormatFloat(candle.Open, 'f', -1, 64),
			strconv.FormatFloat(candle.High, 'f', -1, 64),
			strconv.FormatFloat(candle.Low, 'f', -1, 64),
			strconv.FormatFloat(candle.Close, 'f', -1, 64),
			strconv.FormatFloat(candle.Volume, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			_ = file.Close()
			return fmt.Errorf("cache: 写入K线失败: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return fmt.Errorf("cache: 刷新缓存失败: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("cache: 关闭缓存文件失败: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("cache: 替换缓存文件失败: %w", err)
	}
	return nil
}

func (c *Cache) filePath(symbol, timeframe string) string {
	name := fmt.Sprintf("%s_%s.csv", sanitize(symbol), sanitize(timeframe))
	return filepath.Join(c.dir, name)
}

func sanitize(s string) string {
	replacer := strings.NewReplacer("/", "-", ":", "-", " ", "")
	return replacer.Replace(s)
}

func parseRecord(record []string) (market.Candle, error) {
	if len(record) < 6 {
		return market.Candle{}, fmt.Errorf("字段数 %d 不足", len(record))
	}

	ms, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("时间戳无效: %w", err)
	}

	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, parseErr := strconv.ParseFloat(record[i+1], 64)
		if parseErr != nil {
			return market.Candle{}, fmt.Errorf("数值字段无效: %w", parseErr)
		}
		values[i] = v
	}

	return market.Candle{
		Timestamp: time.UnixMilli(ms).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}
