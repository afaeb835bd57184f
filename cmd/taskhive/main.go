package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskhive/api"
	"taskhive/query"
	"taskhive/storage"
	"taskhive/tasks"
	"taskhive/view"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing storage config")
	}
	tasksTable := envOr("TASKS_TABLE", "tasks")
	store, err := storage.New(connStr, tasksTable, os.Getenv("TASK_EVENTS_QUEUE"))
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var cache query.Cache
	cacheTTL := envDuration("TASKS_CACHE_TTL", 5*time.Minute)
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		cache = storage.NewCache(redis.NewClient(redisOptions(redisConn)), cacheTTL)
	} else {
		log.Info("REDIS_CONNECTION_STRING not set; using in-process task cache")
		cache = query.NewMemoryCacheTTL(cacheTTL)
	}

	svc := tasks.New(store, store, logger)
	client := query.NewClient(svc, cache, logger)

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(envOr("CORS_ALLOW_ORIGINS", "*"), ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, client, newAuth(), logger)

	listenAddr := ":" + envOr("PORT", "8080")
	e.Logger.Fatal(e.Start(listenAddr))
}

func newAuth() *api.Auth {
	cfg := api.AuthConfig{KeyCacheTTL: envDuration("JWKS_CACHE_TTL", 0)}

	if mode := strings.ToLower(os.Getenv("LOCAL_AUTH_MODE")); mode != "" {
		if mode != "hs256" {
			log.Fatal("unsupported LOCAL_AUTH_MODE value")
		}
		secret := os.Getenv("LOCAL_AUTH_SHARED_SECRET")
		if secret == "" {
			log.Fatal("LOCAL_AUTH_SHARED_SECRET must be set when LOCAL_AUTH_MODE=hs256")
		}
		cfg.SharedSecret = []byte(secret)
		return api.NewAuth(cfg)
	}

	audience := os.Getenv("AUTH0_AUDIENCE")
	domain := os.Getenv("AUTH0_DOMAIN")
	if audience == "" || domain == "" {
		log.Fatal("missing Auth0 config")
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{RefreshInterval: time.Hour})
	if err != nil {
		log.Fatalf("jwks: %v", err)
	}
	cfg.JWKS = jwks
	cfg.Audience = audience
	cfg.Issuer = "https://" + domain + "/"
	return api.NewAuth(cfg)
}

// redisOptions accepts a redis:// URL or the "host:port,password=...,ssl=true" form.
func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Fatalf("invalid %s: %q", key, v)
	}
	return d
}
