package title

import (
	"context"
	"log"
	"net/url"
)

// Dispatcher 按固定顺序遍历处理器，选中第一个 CanHandle 的平台
//
// 处理器列表由调用方构造注入，没有全局注册表；
// Generic 注册在最后且无条件匹配，保证遍历一定终止。
type Dispatcher struct {
	handlers []Handler
}

// NewDispatcher 创建分发器，handlers 按优先级排列
func NewDispatcher(handlers ...Handler) *Dispatcher {
	return &Dispatcher{handlers: handlers}
}

// DefaultHandlers 默认处理器顺序
func DefaultHandlers(env *Env) []Handler {
	return []Handler{
		NewWeChatHandler(env),
		NewTwitterHandler(env),
		NewXiaohongshuHandler(env),
		NewDouyinHandler(env),
		NewFeishuHandler(env),
		NewGenericHandler(env),
	}
}

// Resolve 解析 URL 所属平台并提取标题
//
// 畸形 URL 不会报错：解析失败时所有平台处理器都不匹配，
// 最终由 Generic 兜底。分发器本身不发起任何网络请求。
func (d *Dispatcher) Resolve(ctx context.Context, rawURL string) Result {
	u, err := url.Parse(rawURL)
	if err != nil {
		u = nil
	}

	for _, h := range d.handlers {
		if !h.CanHandle(u) {
			continue
		}
		result := h.FetchTitle(ctx, rawURL)
		if result.Title != nil {
			log.Printf("[dispatcher] %s 提取成功 method=%s cached=%v", h.Name(), result.Method, result.Cached)
		} else {
			log.Printf("[dispatcher] %s 提取失败 errors=%v", h.Name(), result.Errors)
		}
		return result
	}

	// Generic 无条件匹配，正常不可能走到这里
	log.Printf("[dispatcher] 没有处理器匹配: %s", rawURL)
	return Result{}
}

// PlatformFor 只做平台识别，不发起提取（分类回退规则用）
func (d *Dispatcher) PlatformFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		u = nil
	}
	for _, h := range d.handlers {
		if h.CanHandle(u) {
			return h.Name()
		}
	}
	return "generic"
}
