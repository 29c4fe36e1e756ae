package exchange

import "strings"

// 港股每手股数表，未收录的股票按默认每手100股处理

const DefaultLotSize int64 = 100

var hkLotSizes = map[string]int64{
	"00700": 100,  // 腾讯控股
	"09988": 50,   // 阿里巴巴-SW
	"00941": 200,  // 中国移动
	"02318": 400,  // 中国平安
	"01299": 500,  // 友邦保险
	"00939": 500,  // 建设银行
	"01398": 1000, // 工商银行
	"00388": 1000, // 香港交易所
	"03690": 200,  // 美团-W
	"01810": 200,  // 小米集团-W
}

// NormalizeSymbol 归一化股票代码，去掉 HKEX: 前缀并补齐5位
func NormalizeSymbol(symbol string) string {
	if i := strings.IndexByte(symbol, ':'); i >= 0 {
		symbol = symbol[i+1:]
	}
	for len(symbol) < 5 {
		symbol = "0" + symbol
	}
	return symbol
}

func defaultLotSize(symbol string) int64 {
	if size, ok := hkLotSizes[NormalizeSymbol(symbol)]; ok {
		return size
	}
	return DefaultLotSize
}
