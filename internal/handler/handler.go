package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zapin/metadata-service/internal/classifier"
	"github.com/zapin/metadata-service/internal/config"
	"github.com/zapin/metadata-service/internal/fetcher"
	"github.com/zapin/metadata-service/internal/processor"
	"github.com/zapin/metadata-service/internal/title"
)

// Handler HTTP 处理器
type Handler struct {
	dispatcher *title.Dispatcher
	classifier *classifier.Classifier
	fetcher    *fetcher.Fetcher
	semaphore  chan struct{}
	config     *config.Config
}

// ExtractResponse 提取响应
type ExtractResponse struct {
	Title  *string `json:"title"`
	Author string  `json:"author"`
	Cached bool    `json:"cached,omitempty"`
	// 以下字段仅 debug=1 时返回
	Method string   `json:"method,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// ResolveResponse 仅跟随重定向的响应
type ResolveResponse struct {
	ResolvedURL string `json:"resolvedUrl"`
}

// ClassifyRequest 分类请求
type ClassifyRequest struct {
	Content  string `json:"content"`
	Metadata *struct {
		Platform    string `json:"platform,omitempty"`
		Title       string `json:"title,omitempty"`
		OriginalURL string `json:"originalUrl,omitempty"`
	} `json:"metadata,omitempty"`
}

// ClassifyResponse 分类响应
type ClassifyResponse struct {
	Category  classifier.Category `json:"category"`
	Reasoning string              `json:"reasoning,omitempty"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status      string `json:"status"`
	Concurrency int    `json:"concurrency"`
	Available   int    `json:"available"`
	LLMEnabled  bool   `json:"llmEnabled"`
}

// New 创建处理器
func New(cfg *config.Config, d *title.Dispatcher, c *classifier.Classifier, f *fetcher.Fetcher) *Handler {
	return &Handler{
		dispatcher: d,
		classifier: c,
		fetcher:    f,
		semaphore:  make(chan struct{}, cfg.MaxConcurrent),
		config:     cfg,
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.handleRoot)
	mux.HandleFunc("/health", h.handleHealth)
}

// handleRoot 边缘函数入口：GET 提取标题，POST 分类
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	setCORS(w)

	switch r.Method {
	case http.MethodOptions:
		// CORS 预检：204，无响应体
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		h.handleExtract(w, r)
	case http.MethodPost:
		h.handleClassify(w, r)
	default:
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleHealth 健康检查
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	available := h.config.MaxConcurrent - len(h.semaphore)
	resp := HealthResponse{
		Status:      "ok",
		Concurrency: h.config.MaxConcurrent,
		Available:   available,
		LLMEnabled:  h.classifier.Enabled(),
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleExtract 标题提取：?url=<目标>，可选 resolve=1 / debug=1
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	// 获取信号量
	select {
	case h.semaphore <- struct{}{}:
		defer func() { <-h.semaphore }()
	default:
		h.writeError(w, http.StatusServiceUnavailable, "Server is busy")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.RequestTimeout)
	defer cancel()

	// resolve=1：只还原重定向，不做提取
	if r.URL.Query().Get("resolve") == "1" {
		resolved, err := h.fetcher.ResolveRedirect(ctx, rawURL)
		if err != nil {
			resolved = rawURL
		}
		w.Header().Set("Cache-Control", "no-cache")
		h.writeJSON(w, http.StatusOK, ResolveResponse{ResolvedURL: resolved})
		return
	}

	debug := r.URL.Query().Get("debug") == "1"
	result := h.dispatcher.Resolve(ctx, rawURL)

	resp := ExtractResponse{
		Title:  result.Title,
		Author: result.Author,
		Cached: result.Cached,
	}
	if debug {
		resp.Method = result.Method
		resp.Errors = result.Errors
	}

	// 成功且非 debug 的结果允许边缘/浏览器缓存
	if result.Title != nil && !debug {
		w.Header().Set("Cache-Control", "public, max-age=3600")
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleClassify 内容分类：body {content, metadata?}
func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Content == "" {
		h.writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	// LLM 既没配 Key 又没有显式关闭，说明部署坏了，不静默回退
	if !h.classifier.Enabled() && !h.config.LLMDisabled {
		w.Header().Set("Cache-Control", "no-cache")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "classifier is not configured",
			"details": "LLM_API_KEY is missing; set it or set LLM_DISABLED=1",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.RequestTimeout)
	defer cancel()

	in := classifier.Input{RawText: req.Content}
	if u := processor.ExtractURL(req.Content); u != "" {
		in.IsLink = true
		in.URL = u
		in.Platform = h.dispatcher.PlatformFor(u)
	}
	// 调用方带来的元数据优先（通常是上一步提取的结果）
	if req.Metadata != nil {
		if req.Metadata.Platform != "" {
			in.Platform = req.Metadata.Platform
		}
		if req.Metadata.OriginalURL != "" {
			in.IsLink = true
			in.URL = req.Metadata.OriginalURL
		}
		in.Title = req.Metadata.Title
	}

	out := h.classifier.Classify(ctx, in)
	w.Header().Set("Cache-Control", "no-cache")
	h.writeJSON(w, http.StatusOK, ClassifyResponse{Category: out.Category, Reasoning: out.Reasoning})
}

// ExtractForTask 队列任务用的提取入口（复用分发器，带总超时）
func (h *Handler) ExtractForTask(ctx context.Context, rawURL string) title.Result {
	ctx, cancel := context.WithTimeout(ctx, h.config.RequestTimeout)
	defer cancel()
	return h.dispatcher.Resolve(ctx, rawURL)
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "86400")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Cache-Control", "no-cache")
	h.writeJSON(w, status, map[string]string{"error": message})
}
