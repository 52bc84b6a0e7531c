package backtest

func calculateStatistics(cfg Config, trades []Trade, finalCapital float64) Statistics {
	stats := Statistics{
		InitialCapital: cfg.InitialCapital,
		FinalCapital:   finalCapital,
	}
	if cfg.InitialCapital > 0 {
		stats.ROIPercent = (finalCapital - cfg.InitialCapital) / cfg.InitialCapital * 100
	}
	if len(trades) == 0 {
		return stats
	}

	grossProfit := 0.0
	grossLoss := 0.0
	sumPnlPercent := 0.0
	sumWinPercent := 0.0
	sumLossPercent := 0.0
	for _, trade := range trades {
		sumPnlPercent += trade.PnlPercent
		stats.TotalPnlDollar += trade.PnlDollar

		if trade.PnlPercent > 0 {
			stats.WinningTrades++
			sumWinPercent += trade.PnlPercent
		} else {
			stats.LosingTrades++
			sumLossPercent += -trade.PnlPercent
		}
		if trade.PnlDollar > 0 {
			grossProfit += trade.PnlDollar
		} else {
			grossLoss += -trade.PnlDollar
		}
	}

	stats.TotalTrades = len(trades)
	stats.WinRatePercent = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	stats.AveragePnlPercent = sumPnlPercent / float64(stats.TotalTrades)
	if stats.WinningTrades > 0 {
		stats.AvgWinPercent = sumWinPercent / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLossPercent = sumLossPercent / float64(stats.LosingTrades)
	}

	// 无亏损时盈亏比记为0，保持结果可序列化。
	if grossLoss > 0 {
		stats.ProfitFactor = grossProfit / grossLoss
	}

	return stats
}
