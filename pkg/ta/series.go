package ta

// 序列取值辅助函数，K线与指标序列均按时间升序排列

// Last 取倒数第 position+1 个值，position=0 表示最新值
func Last(s []float64, position int) float64 {
	return s[len(s)-1-position]
}

// LastValues 取最后 size 个值
func LastValues(s []float64, size int) []float64 {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Highest 最近 period 根K线中的最高值
func Highest(s []float64, period int) float64 {
	arr := LastValues(s, period)
	maxVal := arr[0]
	for _, value := range arr {
		if value > maxVal {
			maxVal = value
		}
	}
	return maxVal
}

// Lowest 最近 period 根K线中的最低值
func Lowest(s []float64, period int) float64 {
	arr := LastValues(s, period)
	minVal := arr[0]
	for _, value := range arr {
		if value < minVal {
			minVal = value
		}
	}
	return minVal
}

// ChangePercent 最近 period 根K线的涨跌幅（百分比）
func ChangePercent(s []float64, period int) float64 {
	if len(s) <= period {
		period = len(s) - 1
	}
	if period <= 0 {
		return 0
	}
	base := Last(s, period)
	if base == 0 {
		return 0
	}
	return (Last(s, 0) - base) / base * 100
}

// Crossover s1 上穿 s2
func Crossover(s1, s2 []float64) bool {
	return Last(s1, 0) > Last(s2, 0) && Last(s1, 1) <= Last(s2, 1)
}

// Crossunder s1 下穿 s2
func Crossunder(s1, s2 []float64) bool {
	return Last(s1, 0) <= Last(s2, 0) && Last(s1, 1) > Last(s2, 1)
}
