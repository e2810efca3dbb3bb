// Package title 实现多平台标题提取：每个内容平台一个处理器，
// 处理器内部按优先级依次尝试多个抓取策略，全部失败才算提取失败。
package title

import (
	"context"
	"net/url"
	"strings"

	"github.com/zapin/metadata-service/internal/cache"
	"github.com/zapin/metadata-service/internal/config"
	"github.com/zapin/metadata-service/internal/fetcher"
)

// Result 提取结果
//
// Title 为 nil 是唯一的失败信号；处理器不会返回空串标题，
// 调用方统一用 nil 判断"换下一个"。
type Result struct {
	Title  *string
	Author string
	Cached bool
	// 产出结果的策略名（诊断用）
	Method string
	// 各失败策略的原因（诊断用，debug 模式下随响应返回）
	Errors []string
}

// Handler 平台处理器契约
type Handler interface {
	// Name 平台标识，用于日志和缓存键
	Name() string
	// CanHandle 纯函数的域名判断；u 解析失败时为 nil
	CanHandle(u *url.URL) bool
	// FetchTitle 执行提取，可能发起网络请求和读写缓存
	FetchTitle(ctx context.Context, rawURL string) Result
}

// Env 处理器的共享依赖，启动时由调用方注入
type Env struct {
	Fetcher *fetcher.Fetcher
	Reader  *fetcher.ReaderClient
	Cache   cache.TitleCache
	Cfg     *config.Config
}

// 各平台使用的 User-Agent
const (
	// 微信文章需要移动端浏览器 UA
	mobileUA = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	// 小红书对 iOS Safari 最宽容
	iosSafariUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	// 通用页面用爬虫 UA，很多站点会给爬虫返回完整 meta 标签
	botUA = "Mozilla/5.0 (compatible; ZapinBot/1.0; +https://zapin.app/bot)"
)

// candidate 单个策略的成功产出
type candidate struct {
	title  string
	author string
}

// strategy 一个具体的提取策略
type strategy struct {
	name string
	run  func(ctx context.Context) (candidate, error)
}

// 必须整体拒绝的占位标题（小写比较）
var placeholderTitles = map[string]bool{
	"vlog":            true,
	"微信公众平台":          true,
	"小红书":             true,
	"小红书 - 你的生活兴趣社区":  true,
	"抖音":              true,
	"x":               true,
	"twitter":         true,
	"飞书云文档":           true,
	"feishu docs":     true,
}

// 反爬拦截页的特征片段（包含即拒绝）
var interstitialFragments = []string{
	"page not found",
	"access restricted",
	"页面不存在",
	"内容不存在",
	"验证码",
	"当前环境异常",
	"just a moment",
}

// ValidTitle 标题有效性判定：非空、非占位值、非拦截页文案
func ValidTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return false
	}
	if placeholderTitles[t] {
		return false
	}
	for _, frag := range interstitialFragments {
		if strings.Contains(t, frag) {
			return false
		}
	}
	return true
}

// run 处理器共用的状态机：查缓存 → 依次执行策略 → 校验 → 写缓存
//
// 策略内的网络错误、解析错误和校验失败一律吞掉并记录原因，
// 只有整条策略链耗尽才返回 Title 为 nil 的结果。
func (e *Env) run(ctx context.Context, cacheKey string, strategies []strategy) Result {
	if cacheKey != "" && e.Cache != nil {
		if entry, err := e.Cache.Get(ctx, cacheKey); err == nil && entry != nil && ValidTitle(entry.Title) {
			t := entry.Title
			return Result{Title: &t, Author: entry.Author, Cached: true, Method: "cache"}
		}
	}

	var errs []string
	for _, s := range strategies {
		// 调用方断开后放弃剩余策略，也不再写缓存
		if ctx.Err() != nil {
			return Result{Errors: append(errs, "cancelled")}
		}

		sctx, cancel := context.WithTimeout(ctx, e.Cfg.StrategyTimeout)
		cand, err := s.run(sctx)
		cancel()

		if err != nil {
			errs = append(errs, s.name+": "+err.Error())
			continue
		}

		t := strings.TrimSpace(cand.title)
		if !ValidTitle(t) {
			errs = append(errs, s.name+": invalid title")
			continue
		}

		author := strings.TrimSpace(cand.author)
		// 缓存与首次响应必须一字不差
		if cacheKey != "" && e.Cache != nil && ctx.Err() == nil {
			_ = e.Cache.Set(ctx, cacheKey, &cache.Entry{Title: t, Author: author})
		}
		return Result{Title: &t, Author: author, Method: s.name, Errors: errs}
	}

	return Result{Errors: errs}
}
