package indicator

// Ema 计算递归指数移动平均：种子取首个收盘价，平滑系数 2/(period+1)。
// 输入为空或周期非法时返回空结果而不报错，便于上层扫描参数组合。
func Ema(closes []float64, period int) []float64 {
	if len(closes) == 0 || period <= 0 {
		return nil
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = alpha*closes[i] + (1-alpha)*out[i-1]
	}
	return out
}
