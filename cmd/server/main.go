package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/zapin/metadata-service/internal/cache"
	"github.com/zapin/metadata-service/internal/classifier"
	"github.com/zapin/metadata-service/internal/config"
	"github.com/zapin/metadata-service/internal/fetcher"
	"github.com/zapin/metadata-service/internal/handler"
	"github.com/zapin/metadata-service/internal/queue"
	"github.com/zapin/metadata-service/internal/title"
)

func main() {
	// 本地开发时从 .env 读配置，文件不存在则忽略
	_ = godotenv.Load()

	// 加载配置
	cfg := config.DefaultConfig()

	// 创建抓取器
	f, err := fetcher.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create fetcher: %v", err)
	}
	defer f.Close()

	// 标题缓存：有 Redis 用 Redis，否则进程内缓存
	var titleCache cache.TitleCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Printf("Redis cache unavailable, falling back to memory: %v", err)
			titleCache = cache.NewMemoryCache(cfg.CacheTTL)
		} else {
			defer rc.Close()
			titleCache = rc
		}
	} else {
		titleCache = cache.NewMemoryCache(cfg.CacheTTL)
	}

	// 平台处理器与分发器
	env := &title.Env{
		Fetcher: f,
		Reader:  fetcher.NewReaderClient(cfg),
		Cache:   titleCache,
		Cfg:     cfg,
	}
	dispatcher := title.NewDispatcher(title.DefaultHandlers(env)...)

	// 分类器
	var llm *classifier.ChatClient
	if cfg.LLMAPIKey != "" && !cfg.LLMDisabled {
		llm = classifier.NewChatClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	}
	cls := classifier.New(llm)

	// 创建处理器和路由
	h := handler.New(cfg, dispatcher, cls, f)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// 创建服务器
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: mux,
	}

	// 启动 Redis 队列消费者（可选）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RedisURL != "" {
		go startQueueConsumer(ctx, cfg, h)
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		cancel()
		server.Close()
	}()

	// 启动服务
	log.Printf("Zapin metadata service starting on port %s", cfg.HTTPPort)
	log.Printf("Max concurrent: %d", cfg.MaxConcurrent)
	log.Printf("LLM classifier enabled: %v", cls.Enabled())

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}

// startQueueConsumer 启动队列消费者：离线任务也走同一个分发器
func startQueueConsumer(ctx context.Context, cfg *config.Config, h *handler.Handler) {
	q, err := queue.NewRedisQueue(cfg.RedisURL, "zapin-metadata-1")
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		return
	}
	defer q.Close()

	log.Println("Redis queue consumer started")

	q.StartConsumer(ctx, func(ctx context.Context, task *queue.TitleTask) *queue.TitleTaskResult {
		result := h.ExtractForTask(ctx, task.URL)

		taskResult := &queue.TitleTaskResult{
			TaskID: task.ID,
			URL:    task.URL,
			ItemID: task.ItemID,
			Title:  result.Title,
			Author: result.Author,
			Method: result.Method,
		}
		if result.Title == nil && len(result.Errors) > 0 {
			taskResult.Error = result.Errors[len(result.Errors)-1]
		}
		return taskResult
	}, 10)
}
