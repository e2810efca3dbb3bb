package config

import (
	"os"
	"strconv"
	"time"
)

// Config 服务配置
type Config struct {
	// HTTP 服务端口
	HTTPPort string
	// 最大并发数
	MaxConcurrent int
	// 单次请求总超时时间
	RequestTimeout time.Duration
	// 单个抓取策略的超时时间
	StrategyTimeout time.Duration
	// 连接池大小
	MaxIdleConns int
	// 每个主机的最大连接数
	MaxConnsPerHost int
	// 通用抓取 User-Agent
	UserAgent string
	// Reader 代理地址（第三方网页转文本服务）
	ReaderURL string
	// Reader 代理 API Key（可选）
	ReaderAPIKey string
	// LLM 接口地址（分类用）
	LLMBaseURL string
	// LLM API Key，为空时分类走确定性回退
	LLMAPIKey string
	// LLM 模型名
	LLMModel string
	// 显式关闭 LLM 分类（全部走确定性回退，不算配置错误）
	LLMDisabled bool
	// Redis URL（缓存与队列，可选）
	RedisURL string
	// 标题缓存 TTL
	CacheTTL time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MaxConcurrent:   getEnvInt("MAX_CONCURRENT", 100),
		RequestTimeout:  time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 45000)) * time.Millisecond,
		StrategyTimeout: time.Duration(getEnvInt("STRATEGY_TIMEOUT_MS", 12000)) * time.Millisecond,
		MaxIdleConns:    getEnvInt("MAX_IDLE_CONNS", 100),
		MaxConnsPerHost: getEnvInt("MAX_CONNS_PER_HOST", 10),
		UserAgent:       getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		ReaderURL:       getEnv("READER_URL", "https://r.jina.ai"),
		ReaderAPIKey:    getEnv("READER_API_KEY", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://api.deepseek.com"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "deepseek-chat"),
		LLMDisabled:     getEnvBool("LLM_DISABLED", false),
		RedisURL:        getEnv("REDIS_URL", ""),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
