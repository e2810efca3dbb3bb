package fetcher

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zapin/metadata-service/internal/config"
)

// ReaderClient Reader 代理客户端
//
// Reader 代理是把任意网页渲染为纯文本/Markdown 的第三方服务，
// 作为反爬平台（飞书、小红书）的兜底抓取策略。
type ReaderClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewReaderClient 创建 Reader 代理客户端
func NewReaderClient(cfg *config.Config) *ReaderClient {
	return &ReaderClient{
		client: &http.Client{
			Timeout: cfg.StrategyTimeout,
		},
		baseURL: strings.TrimRight(cfg.ReaderURL, "/"),
		apiKey:  cfg.ReaderAPIKey,
	}
}

// Fetch 通过 Reader 代理抓取目标页面的文本渲染结果
func (c *ReaderClient) Fetch(ctx context.Context, targetURL string) *FetchResult {
	start := time.Now()
	result := &FetchResult{URL: targetURL, Strategy: "reader"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+targetURL, nil)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Return-Format", "text")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode != http.StatusOK {
		result.Error = &HTTPError{StatusCode: resp.StatusCode}
		result.Duration = time.Since(start)
		return result
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	result.FinalURL = targetURL
	result.HTML = string(body)
	result.Duration = time.Since(start)
	return result
}
