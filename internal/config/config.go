package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort string

	// 为空时不启用站点登记（仅使用 SourcesFile 中的列表）
	PostgresDSN string
	RedisAddr   string

	// redis / leveldb / memory
	CacheBackend string
	LevelDBPath  string

	HTTPTimeout      time.Duration
	MediaConcurrency int

	WarmupCron string
	WarmupRPS  float64

	SourcesFile string

	BasicAuthUser string
	BasicAuthPass string
}

// Source 配置文件里登记的站点
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

func Load() *Config {
	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "9000"),
		PostgresDSN:      getEnv("POSTGRES_DSN", ""),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6380"),
		CacheBackend:     getEnv("CACHE_BACKEND", "redis"),
		LevelDBPath:      getEnv("LEVELDB_PATH", "./data/leveldb"),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 5*time.Second),
		MediaConcurrency: getEnvInt("MEDIA_CONCURRENCY", 1),
		WarmupCron:       getEnv("WARMUP_CRON", "*/10 * * * *"),
		WarmupRPS:        getEnvFloat("WARMUP_RPS", 2),
		SourcesFile:      getEnv("SOURCES_FILE", ""),
		BasicAuthUser:    getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:    getEnv("APP_BASIC_PASS", ""),
	}

	log.Printf("config loaded: port=%s cache=%s warmup=%s timeout=%s", cfg.AppPort, cfg.CacheBackend, cfg.WarmupCron, cfg.HTTPTimeout)
	return cfg
}

// LoadSources 读取 YAML 站点列表，path 为空时返回空列表
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources file: %w", err)
	}
	var f sourcesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parsing sources file %s: %w", path, err)
	}
	for i, s := range f.Sources {
		if s.URL == "" {
			return nil, fmt.Errorf("sources[%d]: url is required", i)
		}
	}
	return f.Sources, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("config: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
