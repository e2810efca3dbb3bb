package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/zapin/metadata-service/internal/config"
)

// StandardClient 标准 HTTP 客户端（备用）
type StandardClient struct {
	client     *http.Client
	noRedirect *http.Client
	userAgent  string
}

// NewStandardClient 创建标准 HTTP 客户端
func NewStandardClient(cfg *config.Config) *StandardClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		TLSHandshakeTimeout:   10 * time.Second,
		DisableCompression:    false,
		ResponseHeaderTimeout: 10 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.StrategyTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	// 不跟随重定向，用于短链接还原
	noRedirect := &http.Client{
		Transport: transport,
		Timeout:   cfg.StrategyTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &StandardClient{
		client:     client,
		noRedirect: noRedirect,
		userAgent:  cfg.UserAgent,
	}
}

// Fetch 使用标准客户端抓取
func (c *StandardClient) Fetch(ctx context.Context, url string, opts Options) *FetchResult {
	start := time.Now()
	result := &FetchResult{URL: url, Strategy: "standard"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = c.userAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")
	if opts.Referer != "" {
		req.Header.Set("Referer", opts.Referer)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	defer resp.Body.Close()

	result.FinalURL = resp.Request.URL.String()
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

	result.HTML = string(body)
	result.Duration = time.Since(start)
	return result
}

// ResolveRedirect 请求一次，捕获 Location 头
func (c *StandardClient) ResolveRedirect(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if loc := resp.Header.Get("Location"); loc != "" {
		// Location 允许是相对路径，必须基于请求地址补全
		locURL, err := neturl.Parse(loc)
		if err != nil {
			return "", err
		}
		return resp.Request.URL.ResolveReference(locURL).String(), nil
	}
	if resp.StatusCode == http.StatusOK {
		// 没有重定向，原地址即最终地址
		return url, nil
	}
	return "", errors.New("no redirect location")
}
