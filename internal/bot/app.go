// Package bot wires the conversation engine, its stores, and the generation
// backend into a runnable Telegram application.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/m3rciful/qabot/core/bootstrap"
	corecmd "github.com/m3rciful/qabot/core/cmd"
	coretelegram "github.com/m3rciful/qabot/core/telegram"
	"github.com/m3rciful/qabot/core/telegram/router"
	"github.com/m3rciful/qabot/internal/flow"
	"github.com/m3rciful/qabot/internal/llm"
	"github.com/m3rciful/qabot/internal/messages"
	"github.com/m3rciful/qabot/internal/prd"
	"github.com/m3rciful/qabot/internal/task"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/qabot/core/telegram/helpers"
)

// App holds the assembled application.
type App struct {
	cfg *Config

	db       *sqlx.DB
	redis    *redis.Client
	memTasks *task.MemoryStore

	tasks  task.Store
	prd    prd.Store
	engine *flow.Engine
}

// Bootstrap initializes infrastructure and assembles the application.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("bot: unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	app := &App{cfg: cfg, db: res.DB}

	ttl := time.Duration(cfg.Bot.TaskTTLSeconds) * time.Second
	if cfg.Redis.Addr != "" {
		client, err := task.NewRedisClient(context.Background(),
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("bot: redis init failed: %w", err)
		}
		app.redis = client
		app.tasks = task.NewRedisStore(client, cfg.Redis.Prefix, ttl)
	} else {
		app.memTasks = task.NewMemoryStore(ttl)
		app.tasks = app.memTasks
	}

	if res.DB != nil {
		app.prd = prd.NewPostgresStore(res.DB)
	} else {
		app.prd = prd.NewMemoryStore()
	}

	gen := llm.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MaxTokens)
	app.engine = flow.New(app.tasks, app.prd, gen, flow.Options{
		IncludeHistory: cfg.LLM.IncludeHistory,
	})

	return app, nil
}

// Close releases store backends. Safe to call more than once.
func (a *App) Close() {
	if a.memTasks != nil {
		a.memTasks.Close()
		a.memTasks = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

// TelegramRunOptions builds the registry, routes, and middleware chain.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.registerCommands(reg)
	a.registerCallbacks(reg)
	reg.SetTextFallback(a.onUnknownText)
	reg.SetDocumentHandler(a.onDocument)

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.TextRoutes(&fsmAdapter{engine: a.engine}, reg, router.TextOptions{
		UnknownText: a.onUnknownText,
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, a.mediaRoutes()...)

	mws := coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), func(c tele.Context) error {
		return tghelpers.SendText(c, messages.RateLimited())
	})

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: mws,
		Routes:      routes,
		OnStop: func(context.Context, coretelegram.Runtime) error {
			a.Close()
			return nil
		},
	}, nil
}

// mediaRoutes answer unsupported attachment types with a short notice.
func (a *App) mediaRoutes() []coretelegram.Route {
	notice := func(c tele.Context) error {
		return tghelpers.SendText(c, messages.OnlyTextAndPDF())
	}
	endpoints := []any{
		tele.OnPhoto, tele.OnVideo, tele.OnAudio, tele.OnVoice,
		tele.OnVideoNote, tele.OnSticker,
	}
	routes := make([]coretelegram.Route, 0, len(endpoints))
	for _, ep := range endpoints {
		routes = append(routes, coretelegram.Route{Endpoint: ep, Handler: notice})
	}
	return routes
}
