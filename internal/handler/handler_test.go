package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/zapin/metadata-service/internal/cache"
	"github.com/zapin/metadata-service/internal/classifier"
	"github.com/zapin/metadata-service/internal/config"
	"github.com/zapin/metadata-service/internal/fetcher"
	"github.com/zapin/metadata-service/internal/title"
)

// stubHandler 固定返回一个结果的平台处理器
type stubHandler struct {
	name   string
	result title.Result
}

func (s *stubHandler) Name() string              { return s.name }
func (s *stubHandler) CanHandle(u *url.URL) bool { return true }
func (s *stubHandler) FetchTitle(ctx context.Context, rawURL string) title.Result {
	return s.result
}

func newTestHandler(t *testing.T, stub title.Handler, llmDisabled bool) *Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.LLMDisabled = llmDisabled
	cfg.StrategyTimeout = 2 * time.Second

	var d *title.Dispatcher
	if stub != nil {
		d = title.NewDispatcher(stub)
	} else {
		env := &title.Env{
			Fetcher: fetcher.NewStandard(cfg),
			Cache:   cache.NewMemoryCache(time.Minute),
			Cfg:     cfg,
		}
		d = title.NewDispatcher(title.DefaultHandlers(env)...)
	}

	return New(cfg, d, classifier.New(nil), fetcher.NewStandard(cfg))
}

func doRequest(h *Handler, method, target string, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestOptionsPreflight(t *testing.T) {
	h := newTestHandler(t, nil, true)
	w := doRequest(h, http.MethodOptions, "/", "")

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("预检响应不应有响应体, got %q", w.Body.String())
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestExtractMissingURL(t *testing.T) {
	h := newTestHandler(t, nil, true)
	w := doRequest(h, http.MethodGet, "/", "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	// 错误响应同样要带 CORS 头
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("错误响应缺少 CORS 头")
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("响应不是 JSON: %v", err)
	}
	if body["error"] == "" {
		t.Error("期望 error 字段")
	}
}

func TestExtractSuccess(t *testing.T) {
	titleText := "Hello World"
	h := newTestHandler(t, &stubHandler{
		name:   "stub",
		result: title.Result{Title: &titleText, Author: "Jane", Method: "direct"},
	}, true)

	w := doRequest(h, http.MethodGet, "/?url=https%3A%2F%2Fexample.com%2Fpost", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("Cache-Control = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp ExtractResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应: %v", err)
	}
	if resp.Title == nil || *resp.Title != "Hello World" {
		t.Errorf("title = %v, want Hello World", resp.Title)
	}
	if resp.Author != "Jane" {
		t.Errorf("author = %q, want Jane", resp.Author)
	}
	// 非 debug 模式不暴露诊断字段
	if resp.Method != "" {
		t.Errorf("非 debug 响应不应包含 method, got %q", resp.Method)
	}
}

func TestExtractFailureReturnsNullTitle(t *testing.T) {
	h := newTestHandler(t, &stubHandler{
		name:   "stub",
		result: title.Result{Errors: []string{"oembed: HTTP error"}},
	}, true)

	w := doRequest(h, http.MethodGet, "/?url=https%3A%2F%2Fx.com%2Fuser%2Fstatus%2F12345", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("失败结果不应允许缓存, Cache-Control = %q", got)
	}

	// title 必须是字面量 null，author 必须是空串
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("解析响应: %v", err)
	}
	if string(raw["title"]) != "null" {
		t.Errorf("title = %s, want null", raw["title"])
	}
	var author string
	json.Unmarshal(raw["author"], &author)
	if author != "" {
		t.Errorf("author = %q, want empty", author)
	}
}

func TestExtractDebugFields(t *testing.T) {
	titleText := "T"
	h := newTestHandler(t, &stubHandler{
		name:   "stub",
		result: title.Result{Title: &titleText, Method: "direct", Errors: []string{"oembed: timeout"}},
	}, true)

	w := doRequest(h, http.MethodGet, "/?url=https%3A%2F%2Fexample.com&debug=1", "")

	if got := w.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("debug 响应不应允许缓存, Cache-Control = %q", got)
	}

	var resp ExtractResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Method != "direct" {
		t.Errorf("method = %q, want direct", resp.Method)
	}
	if len(resp.Errors) != 1 {
		t.Errorf("errors = %v", resp.Errors)
	}
}

func TestResolveMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://www.douyin.com/video/7123456", http.StatusFound)
	}))
	defer server.Close()

	h := newTestHandler(t, nil, true)
	w := doRequest(h, http.MethodGet, "/?url="+url.QueryEscape(server.URL)+"&resolve=1", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp ResolveResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应: %v", err)
	}
	if resp.ResolvedURL != "https://www.douyin.com/video/7123456" {
		t.Errorf("resolvedUrl = %q", resp.ResolvedURL)
	}
}

func TestClassifyMissingContent(t *testing.T) {
	h := newTestHandler(t, nil, true)
	w := doRequest(h, http.MethodPost, "/", `{}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// LLM 没配 Key 且没显式关闭：部署配置错误，返回 500 而不是静默回退
func TestClassifyMisconfigured(t *testing.T) {
	h := newTestHandler(t, nil, false)
	w := doRequest(h, http.MethodPost, "/", `{"content":"记得买牙刷"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] == "" || body["details"] == "" {
		t.Errorf("期望 error 和 details 字段, got %v", body)
	}
}

func TestClassifyFallback(t *testing.T) {
	h := newTestHandler(t, nil, true)

	tests := []struct {
		name     string
		body     string
		expected classifier.Category
	}{
		// 非链接文本的回退是 others，不做关键词匹配
		{"纯文本", `{"content":"记得买牙刷"}`, classifier.CategoryOthers},
		{"普通链接", `{"content":"https://example.com/article"}`, classifier.CategoryExternal},
		{"小红书链接", `{"content":"看看 https://www.xiaohongshu.com/explore/65f1a2b3"}`, classifier.CategoryExternal},
		{"带元数据的飞书链接", `{"content":"评审文档 https://example.feishu.cn/docx/a","metadata":{"platform":"feishu"}}`, classifier.CategoryWork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(h, http.MethodPost, "/", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}

			var resp ClassifyResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("解析响应: %v", err)
			}
			if resp.Category != tt.expected {
				t.Errorf("category = %q, want %q", resp.Category, tt.expected)
			}
			if !resp.Category.Valid() {
				t.Errorf("分类值 %q 不在枚举内", resp.Category)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t, nil, true)
	w := doRequest(h, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
}
