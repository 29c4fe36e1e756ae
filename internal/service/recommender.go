package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/dushixiang/spectrum/internal/repo"
	"github.com/dushixiang/spectrum/internal/xe"
	"github.com/dushixiang/spectrum/pkg/exchange"
	"github.com/oklog/ulid/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 推荐动作
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Recommendation 一条交易建议及其执行结果
type Recommendation struct {
	Symbol      string   `json:"symbol"`
	Action      string   `json:"action"` // BUY/SELL/HOLD
	Lots        int64    `json:"lots"`   // 手数
	Confidence  float64  `json:"confidence"`
	Reason      string   `json:"reason"`
	TargetPrice *float64 `json:"target_price,omitempty"`
	Executed    bool     `json:"executed"`
	TradeID     string   `json:"trade_id,omitempty"`
}

// RecommendContext 一次推荐请求的完整输入
type RecommendContext struct {
	StrategyID      string
	Rules           string
	Symbols         []string
	Balance         exchange.Balance
	Positions       map[string]exchange.Position
	Market          map[string]*SymbolContext
	LotSizes        map[string]int64
	MaxPositionSize float64
	MaxPositions    int
	RecentTrades    []models.Trade
}

// Recommender 交易建议提供方
type Recommender interface {
	Recommend(ctx context.Context, rc *RecommendContext) ([]Recommendation, error)
}

const recommendSystemTemplate = `你是一名港股投资组合经理，为一个模拟交易账户给出调仓建议。

## 交易规则
{{rules}}

## 硬性约束
- 只能交易给定股票池中的股票
- 单一持仓市值不得超过总资产的 {{max_position_size}}
- 最多同时持有 {{max_positions}} 只股票
- lots 表示手数，必须是正整数；每手股数见行情信息
- 没有把握时给出 HOLD，不要勉强交易

## 输出要求
只输出一个JSON数组，不要输出任何其他文字。每个元素格式：
{"symbol": "00700", "action": "BUY|SELL|HOLD", "lots": 2, "confidence": 0.7, "reason": "一句话理由", "target_price": 350.0}
target_price 可省略。没有任何操作时输出空数组 []。`

// LLMRecommender 基于大模型的推荐实现
type LLMRecommender struct {
	logger  *zap.Logger
	client  *openai.Client
	model   string
	timeout time.Duration

	logRepo *repo.RecommenderLogRepo
}

var _ Recommender = (*LLMRecommender)(nil)

// NewLLMRecommender 创建大模型推荐服务
func NewLLMRecommender(db *gorm.DB, client *openai.Client, model string, timeout time.Duration, logger *zap.Logger) *LLMRecommender {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMRecommender{
		logger:  logger,
		client:  client,
		model:   model,
		timeout: timeout,
		logRepo: repo.NewRecommenderLogRepo(db),
	}
}

// Recommend 请求大模型给出调仓建议
// 超时或服务异常时返回错误，由调用方决定本轮是否空转
func (r *LLMRecommender) Recommend(ctx context.Context, rc *RecommendContext) ([]Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	systemPrompt := fasttemplate.ExecuteString(recommendSystemTemplate, "{{", "}}", map[string]interface{}{
		"rules":             rc.Rules,
		"max_position_size": fmt.Sprintf("%.0f%%", rc.MaxPositionSize*100),
		"max_positions":     strconv.Itoa(rc.MaxPositions),
	})
	userPrompt := r.buildUserPrompt(rc)

	started := time.Now()
	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	})
	duration := time.Since(started)

	logEntry := models.RecommenderLog{
		ID:         ulid.Make().String(),
		StrategyID: rc.StrategyID,
		Model:      r.model,
		Prompt:     userPrompt,
		Duration:   duration.Milliseconds(),
		ExecutedAt: started,
	}

	if err != nil {
		logEntry.Error = err.Error()
		r.saveLog(logEntry)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, xe.ErrRecommenderTimeout
		}
		return nil, xe.ErrRecommenderUnavailable
	}

	if len(resp.Choices) == 0 {
		logEntry.Error = "empty choices"
		r.saveLog(logEntry)
		return nil, xe.ErrRecommenderUnavailable
	}

	content := resp.Choices[0].Message.Content
	logEntry.Response = content
	logEntry.PromptTokens = int(resp.Usage.PromptTokens)
	logEntry.CompletionTokens = int(resp.Usage.CompletionTokens)

	recommendations, parseErr := parseRecommendations(content)
	if parseErr != nil {
		logEntry.Error = parseErr.Error()
		r.saveLog(logEntry)
		r.logger.Warn("failed to parse recommendations",
			zap.String("strategy_id", rc.StrategyID),
			zap.Error(parseErr))
		return nil, xe.ErrRecommenderUnavailable
	}

	r.saveLog(logEntry)
	return recommendations, nil
}

func (r *LLMRecommender) saveLog(entry models.RecommenderLog) {
	if err := r.logRepo.Create(context.Background(), &entry); err != nil {
		r.logger.Error("failed to save recommender log", zap.Error(err))
	}
}

// buildUserPrompt 组装投资组合与市场背景
func (r *LLMRecommender) buildUserPrompt(rc *RecommendContext) string {
	var sb strings.Builder

	sb.WriteString("## 账户概况\n\n")
	sb.WriteString(fmt.Sprintf("- 现金：%.2f HKD\n", rc.Balance.Cash))
	sb.WriteString(fmt.Sprintf("- 持仓市值：%.2f HKD\n", rc.Balance.PositionsValue))
	sb.WriteString(fmt.Sprintf("- 总资产：%.2f HKD\n\n", rc.Balance.TotalAssets))

	sb.WriteString("## 当前持仓\n\n")
	if len(rc.Positions) == 0 {
		sb.WriteString("无持仓。\n\n")
	} else {
		symbols := make([]string, 0, len(rc.Positions))
		for symbol := range rc.Positions {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			pos := rc.Positions[symbol]
			sb.WriteString(fmt.Sprintf("- %s：%d 股，成本 %.3f\n", symbol, pos.Quantity, pos.AvgPrice))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## 股票池行情\n\n")
	for _, symbol := range rc.Symbols {
		lotSize := rc.LotSizes[symbol]
		sc, ok := rc.Market[symbol]
		if !ok {
			sb.WriteString(fmt.Sprintf("### %s（每手 %d 股）\n\n行情数据不足。\n\n", symbol, lotSize))
			continue
		}
		sb.WriteString(fmt.Sprintf("### %s（每手 %d 股）\n\n", symbol, lotSize))
		sb.WriteString(fmt.Sprintf("- 最新价：%.3f，5日涨跌 %.2f%%，20日涨跌 %.2f%%\n", sc.Price, sc.Change5d, sc.Change20d))
		sb.WriteString(fmt.Sprintf("- EMA20=%.3f，EMA50=%.3f，MACD=%.4f/%.4f/%.4f，RSI14=%.1f\n",
			sc.EMA20, sc.EMA50, sc.MACD, sc.MACDSignal, sc.MACDHist, sc.RSI14))
		sb.WriteString(fmt.Sprintf("- 20日区间：%.3f ~ %.3f\n", sc.Low20d, sc.High20d))
		if sc.GoldenCross {
			sb.WriteString("- EMA20 刚刚上穿 EMA50\n")
		}
		if sc.DeathCross {
			sb.WriteString("- EMA20 刚刚下穿 EMA50\n")
		}
		sb.WriteString("\n")
	}

	if len(rc.RecentTrades) > 0 {
		sb.WriteString("## 最近成交\n\n")
		for _, trade := range rc.RecentTrades {
			sb.WriteString(fmt.Sprintf("- %s %s %s %d 股 @ %.3f\n",
				trade.ExecutedAt.Format("01-02 15:04"), trade.Side, trade.Symbol, trade.Quantity, trade.Price))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("请给出本轮调仓建议。")
	return sb.String()
}

// parseRecommendations 解析模型返回的JSON数组，容忍代码块包裹
func parseRecommendations(content string) ([]Recommendation, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var recommendations []Recommendation
	if err := json.Unmarshal([]byte(content[start:end+1]), &recommendations); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}

	result := make([]Recommendation, 0, len(recommendations))
	for _, rec := range recommendations {
		rec.Action = strings.ToUpper(strings.TrimSpace(rec.Action))
		switch rec.Action {
		case ActionBuy, ActionSell, ActionHold:
			result = append(result, rec)
		default:
			// 无法识别的动作按 HOLD 处理，保留原始理由供回溯
			rec.Action = ActionHold
			result = append(result, rec)
		}
	}
	return result, nil
}
