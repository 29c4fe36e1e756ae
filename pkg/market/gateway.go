package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GatewayClient 行情网关客户端
// 对接独立部署的报价网关（富途 OpenD 等由网关侧封装），
// 引擎侧只消费两个只读接口：实时报价与历史K线
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGatewayClient 创建行情网关客户端
func NewGatewayClient(baseURL string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GatewayClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type quoteResponse struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type historyResponse struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// GetReferencePrice 获取当前参考价
func (c *GatewayClient) GetReferencePrice(ctx context.Context, symbol string) (float64, error) {
	var resp quoteResponse
	if err := c.get(ctx, "/api/quote", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return 0, err
	}
	if resp.Price <= 0 {
		return 0, ErrUnavailable
	}
	return resp.Price, nil
}

// GetHistory 获取最近 limit 根日K线
func (c *GatewayClient) GetHistory(ctx context.Context, symbol string, limit int) ([]Bar, error) {
	query := url.Values{
		"symbol": {symbol},
		"limit":  {strconv.Itoa(limit)},
	}
	var resp historyResponse
	if err := c.get(ctx, "/api/history", query, &resp); err != nil {
		return nil, err
	}
	return resp.Bars, nil
}

func (c *GatewayClient) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
