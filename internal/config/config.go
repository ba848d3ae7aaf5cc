// Package config loads runtime settings from the environment (and an optional .env file).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string
	GRPCAddr    string

	// API remota (Django REST)
	APIBaseURL   string
	APITimeout   time.Duration
	AuthMode     string // "cookie" (login por país) o "bearer" (token)
	LoginMode    string // "pais" o "token"
	TokenURL     string
	LoginTimeout time.Duration

	DefaultBranch int64
	SessionTTL    time.Duration

	DBDriver string // "sqlite" (modernc) o "sqlite3" (mattn)
	DBPath   string

	CacheSize int

	// Rabbit; vacío = deshabilitado
	RabbitURL      string
	EventsExchange string
	QMovementReq   string
	QMovementRes   string

	CORSOrigins   []string
	ShutdownGrace time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	return time.Duration(atoienv(key, defSec)) * time.Second
}

func listenv(key, def string) []string {
	var out []string
	for _, p := range strings.Split(getenv(key, def), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads .env (when present) and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServiceName: getenv("BOOKSTOCK_SERVICE_NAME", "bookstock"),
		Env:         getenv("SERVICE_ENV", "dev"),
		HTTPAddr:    getenv("BOOKSTOCK_HTTP_ADDR", ":8090"),
		GRPCAddr:    getenv("BOOKSTOCK_GRPC_ADDR", ":50060"),

		APIBaseURL:   getenv("API_BASE_URL", "http://127.0.0.1:8000"),
		APITimeout:   durenvs("API_TIMEOUT", 15),
		AuthMode:     getenv("API_AUTH_MODE", "cookie"),
		LoginMode:    getenv("LOGIN_MODE", "pais"),
		TokenURL:     getenv("API_TOKEN_URL", "http://127.0.0.1:8000/api/token/"),
		LoginTimeout: durenvs("LOGIN_TIMEOUT", 10),

		DefaultBranch: int64(atoienv("DEFAULT_BRANCH_ID", 1)),
		SessionTTL:    durenvs("SESSION_TTL", 24*60*60),

		DBDriver: getenv("BOOKSTOCK_DB_DRIVER", "sqlite"),
		DBPath:   getenv("BOOKSTOCK_DB_PATH", "bookstock.db"),

		CacheSize: atoienv("BOOKSTOCK_CACHE_SIZE", 512),

		RabbitURL:      getenv("RABBITMQ_URL", ""),
		EventsExchange: getenv("EVENTS_EXCHANGE", "bookstock.events"),
		QMovementReq:   getenv("Q_MOVEMENT_REQUEST", "bookstock.movement.request"),
		QMovementRes:   getenv("Q_MOVEMENT_RESULT", "bookstock.movement.result"),

		CORSOrigins:   listenv("CORS_ORIGINS", "*"),
		ShutdownGrace: durenvs("SHUTDOWN_GRACE", 10),
	}
}
