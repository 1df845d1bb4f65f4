package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rentwork/internal/logger"
	"github.com/rentwork/internal/notify"
)

// loadEnv читает .env только вне production (в контейнере/prod конфиг только из env).
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		path := dir + "/.env"
		f, err := os.Open(path)
		if err == nil {
			loadEnvFrom(f)
			f.Close()
			return
		}
		parent := strings.TrimSuffix(dir, "/")
		if idx := strings.LastIndex(parent, "/"); idx <= 0 {
			return
		} else {
			dir = parent[:idx]
			if dir == "" {
				dir = "/"
			}
		}
	}
}

func loadEnvFrom(f *os.File) {
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		if len(val) >= 2 && (val[0] == '"' && val[len(val)-1] == '"' || val[0] == '\'' && val[len(val)-1] == '\'') {
			val = val[1 : len(val)-1]
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// ActorConfig — профиль пользователя кабинета по умолчанию
// (когда оболочка не проставляет заголовки X-Actor-*).
type ActorConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Avatar string `yaml:"avatar"`
}

// Config содержит настройки движка сообщений.
// Приоритет: переменные окружения > YAML > значения по умолчанию.
type Config struct {
	// Сервер
	ServerAddr   string        `yaml:"server_addr"`
	ReadTimeout  time.Duration `yaml:"-"`
	WriteTimeout time.Duration `yaml:"-"`
	IdleTimeout  time.Duration `yaml:"-"`

	// Хранилище: каталог pebble-базы с состоянием мессенджера.
	DataDir string `yaml:"data_dir"`

	// RedisURL — сессионный слой (staged-вложения, маркеры контекстов).
	// Пустой — используется in-memory хранилище с тем же TTL.
	RedisURL string `yaml:"redis_url"`

	// WebSocket
	MaxWSConnections int `yaml:"max_ws_connections"`

	// CORS
	CORSAllowedOrigins string `yaml:"cors_allowed_origins"`

	// Логирование
	LogLevel string `yaml:"log_level"`

	// Actor — профиль по умолчанию.
	Actor ActorConfig `yaml:"actor"`

	// VAPID-ключи Web Push. Пустые — загружаются/генерируются через config/vapid.json.
	VAPIDPublicKey  string `yaml:"-"`
	VAPIDPrivateKey string `yaml:"-"`
}

// yamlConfig — промежуточная структура для парсинга YAML.
type yamlConfig struct {
	ServerAddr         string      `yaml:"server_addr"`
	ReadTimeout        int         `yaml:"read_timeout"`
	WriteTimeout       int         `yaml:"write_timeout"`
	IdleTimeout        int         `yaml:"idle_timeout"`
	DataDir            string      `yaml:"data_dir"`
	RedisURL           string      `yaml:"redis_url"`
	MaxWSConnections   int         `yaml:"max_ws_connections"`
	CORSAllowedOrigins string      `yaml:"cors_allowed_origins"`
	LogLevel           string      `yaml:"log_level"`
	Actor              ActorConfig `yaml:"actor"`
}

// Load загружает конфигурацию.
// Сначала подгружаются переменные из .env (если есть), затем YAML и env (env имеет приоритет).
func Load() *Config {
	loadEnv()
	// Значения по умолчанию
	yc := yamlConfig{
		ServerAddr:         ":8080",
		ReadTimeout:        15,
		WriteTimeout:       15,
		IdleTimeout:        60,
		DataDir:            "./data",
		MaxWSConnections:   64,
		CORSAllowedOrigins: "*",
		LogLevel:           "info",
		Actor: ActorConfig{
			ID:   "local-user",
			Name: "Пользователь",
		},
	}

	// Загрузка конфигурации приложения: CONFIG_PATH → config/api.yaml
	appPaths := []string{os.Getenv("CONFIG_PATH"), "config/api.yaml"}
	for _, path := range appPaths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &yc); err != nil {
			logger.Errorf("config: ошибка парсинга %s: %v (используются значения по умолчанию)", path, err)
		} else {
			logger.Infof("config: загружен %s", path)
		}
		break
	}

	vapidPublic := envStr("VAPID_PUBLIC_KEY", "")
	vapidPrivate := envStr("VAPID_PRIVATE_KEY", "")
	if vapidPublic == "" || vapidPrivate == "" {
		if keys, err := notify.EnsureVAPIDKeys(""); err == nil {
			vapidPublic = keys.PublicKey
			vapidPrivate = keys.PrivateKey
		} else {
			logger.Infof("config: VAPID-ключи недоступны: %v — пуши отключены", err)
		}
	}

	// Переменные окружения имеют наивысший приоритет
	cfg := &Config{
		ServerAddr:         envStr("SERVER_ADDR", yc.ServerAddr),
		ReadTimeout:        time.Duration(envInt("READ_TIMEOUT", yc.ReadTimeout)) * time.Second,
		WriteTimeout:       time.Duration(envInt("WRITE_TIMEOUT", yc.WriteTimeout)) * time.Second,
		IdleTimeout:        time.Duration(envInt("IDLE_TIMEOUT", yc.IdleTimeout)) * time.Second,
		DataDir:            envStr("DATA_DIR", yc.DataDir),
		RedisURL:           envStr("REDIS_URL", yc.RedisURL),
		MaxWSConnections:   envInt("MAX_WS_CONNECTIONS", yc.MaxWSConnections),
		CORSAllowedOrigins: envStr("CORS_ALLOWED_ORIGINS", yc.CORSAllowedOrigins),
		LogLevel:           envStr("LOG_LEVEL", yc.LogLevel),
		Actor: ActorConfig{
			ID:     envStr("ACTOR_ID", yc.Actor.ID),
			Name:   envStr("ACTOR_NAME", yc.Actor.Name),
			Avatar: envStr("ACTOR_AVATAR", yc.Actor.Avatar),
		},
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
	}

	if os.Getenv("APP_ENV") == "production" {
		if cfg.CORSAllowedOrigins == "" || cfg.CORSAllowedOrigins == "*" {
			logger.Errorf("config: в production задайте CORS_ALLOWED_ORIGINS (явный список origins, не *)")
		}
	}

	return cfg
}

// envStr возвращает значение переменной окружения или fallback.
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt возвращает числовое значение переменной окружения или fallback.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
