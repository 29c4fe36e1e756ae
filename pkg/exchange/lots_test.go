package exchange

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "700", want: "00700"},
		{in: "00700", want: "00700"},
		{in: "HKEX:700", want: "00700"},
		{in: "HK:9988", want: "09988"},
		{in: "09988", want: "09988"},
	}

	for _, tt := range tests {
		if got := NormalizeSymbol(tt.in); got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLotSize(t *testing.T) {
	tests := []struct {
		symbol string
		want   int64
	}{
		{symbol: "00700", want: 100},
		{symbol: "09988", want: 50},
		{symbol: "01398", want: 1000},
		{symbol: "99999", want: DefaultLotSize}, // 未收录
	}

	for _, tt := range tests {
		if got := defaultLotSize(tt.symbol); got != tt.want {
			t.Errorf("defaultLotSize(%q) = %d, want %d", tt.symbol, got, tt.want)
		}
	}
}
