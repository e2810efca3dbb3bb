package fetcher

import (
	"context"
	"time"

	"github.com/zapin/metadata-service/internal/config"
)

// FetchResult 抓取结果
type FetchResult struct {
	URL         string
	FinalURL    string
	HTML        string
	ContentType string
	StatusCode  int
	Strategy    string // cycletls, standard, reader
	Duration    time.Duration
	Error       error
}

// Options 单次抓取的可选参数（各平台使用不同的 User-Agent）
type Options struct {
	UserAgent string
	Referer   string
	Headers   map[string]string
}

// HTTPError 非 2xx 响应错误
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return "HTTP error"
}

// Fetcher 统一抓取器（整合多种策略）
type Fetcher struct {
	cycleTLS *CycleTLSClient
	standard *StandardClient
	config   *config.Config
}

// New 创建抓取器
func New(cfg *config.Config) (*Fetcher, error) {
	// 创建 CycleTLS 客户端
	cycleTLS, err := NewCycleTLSClient(cfg)
	if err != nil {
		// CycleTLS 失败，使用标准客户端
		return &Fetcher{
			standard: NewStandardClient(cfg),
			config:   cfg,
		}, nil
	}

	return &Fetcher{
		cycleTLS: cycleTLS,
		standard: NewStandardClient(cfg),
		config:   cfg,
	}, nil
}

// NewStandard 创建只用标准客户端的抓取器（测试和禁用指纹伪造时用）
func NewStandard(cfg *config.Config) *Fetcher {
	return &Fetcher{
		standard: NewStandardClient(cfg),
		config:   cfg,
	}
}

// Fetch 抓取页面（优先 CycleTLS，失败回退到标准客户端）
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) *FetchResult {
	// 优先使用 CycleTLS（TLS 指纹伪造）
	if f.cycleTLS != nil {
		result := f.cycleTLS.Fetch(ctx, url, opts)
		if result.Error == nil && result.HTML != "" {
			return result
		}
		// CycleTLS 失败，回退到标准客户端
	}

	// 使用标准 HTTP 客户端
	return f.standard.Fetch(ctx, url, opts)
}

// ResolveRedirect 解析短链接：只跟随一次重定向，返回 Location
//
// 抖音分享链接（v.douyin.com/xxx）需要先还原为正式页面地址再抓取。
func (f *Fetcher) ResolveRedirect(ctx context.Context, url string) (string, error) {
	return f.standard.ResolveRedirect(ctx, url)
}

// Close 关闭抓取器
func (f *Fetcher) Close() {
	if f.cycleTLS != nil {
		f.cycleTLS.Close()
	}
}
