package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams = orz.NewError(10400, "参数无效")

	ErrStrategyNotFound   = orz.NewError(20000, "策略不存在")
	ErrStrategyFailed     = orz.NewError(20001, "策略已失败，需修复账户数据后重新加载")
	ErrStrategyNotStopped = orz.NewError(20002, "仅已停止的策略可以删除")
	ErrStrategyNameUsed   = orz.NewError(20003, "策略名称已被使用")
	ErrCurrentNotAllowed  = orz.NewError(20004, "当前状态不允许该操作")

	ErrInvalidLotSize       = orz.NewError(20100, "下单数量必须是每手股数的正整数倍")
	ErrSymbolNotFound       = orz.NewError(20101, "该股票暂无可用参考价")
	ErrInsufficientFunds    = orz.NewError(20102, "可用资金不足")
	ErrInsufficientPosition = orz.NewError(20103, "持仓数量不足")
	ErrCapacityExceeded     = orz.NewError(20104, "已达到最大持仓品种数")
	ErrPositionSizeExceeded = orz.NewError(20105, "超过单一持仓规模上限")

	ErrRecommenderUnavailable = orz.NewError(20200, "推荐服务暂不可用")
	ErrRecommenderTimeout     = orz.NewError(20201, "推荐服务响应超时")
)
