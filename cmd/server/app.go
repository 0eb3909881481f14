package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/satishskid/codegurufs/internal/admin"
	"github.com/satishskid/codegurufs/internal/ai"
	"github.com/satishskid/codegurufs/internal/auth"
	"github.com/satishskid/codegurufs/internal/chat"
	"github.com/satishskid/codegurufs/internal/curriculum"
	"github.com/satishskid/codegurufs/internal/httpapi"
	"github.com/satishskid/codegurufs/internal/judge"
	"github.com/satishskid/codegurufs/internal/platform/cache"
	"github.com/satishskid/codegurufs/internal/platform/config"
	"github.com/satishskid/codegurufs/internal/platform/database"
	"github.com/satishskid/codegurufs/internal/progress"
	"github.com/satishskid/codegurufs/internal/terminal"
	"github.com/satishskid/codegurufs/internal/tutor"
)

const cachePrefix = "codebuddy:"

// app is the wired service.
type app struct {
	handler http.Handler
	gateway *chat.Gateway
	closers []func()
}

// Close releases connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp builds every component from cfg. Without a database all state is
// in memory; without a cache progress is read straight from the store.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]httpapi.Check{}

	var (
		store     progress.Store    = progress.NewMemoryStore()
		terminals terminal.Registry = terminal.NewMemoryRegistry()
		allowlist admin.Allowlist   = admin.NewMemoryAllowlist()
		events    tutor.EventLogger = tutor.NopEventLogger{}
		budget    ai.BudgetChecker
	)

	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		checks["database"] = db.HealthCheck

		if store, err = progress.NewPostgresStore(db.Pool); err != nil {
			a.Close()
			return nil, err
		}
		if terminals, err = terminal.NewPostgresRegistry(db.Pool); err != nil {
			a.Close()
			return nil, err
		}
		if allowlist, err = admin.NewPostgresAllowlist(db.Pool); err != nil {
			a.Close()
			return nil, err
		}
		events = tutor.NewPostgresEventLogger(db.Pool)
		slog.Info("database connected", "max_conns", cfg.Database.MaxConns)
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL, cachePrefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { c.Close() })
		checks["cache"] = c.HealthCheck
		store = progress.NewCachedStore(store, c, cfg.Cache.ProgressTTL)
		if cfg.Budget.DailyTokens > 0 {
			budget = ai.NewRedisBudget(c.Client, cfg.Budget.DailyTokens)
		}
		slog.Info("cache connected", "progress_ttl", cfg.Cache.ProgressTTL)
	} else if cfg.Budget.DailyTokens > 0 {
		budget = ai.NewInMemoryBudget(cfg.Budget.DailyTokens)
	}

	catalog, err := curriculum.LoadCatalog(cfg.CurriculumPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.SeedDemo {
		if err := terminal.Seed(ctx, terminals); err != nil {
			a.Close()
			return nil, fmt.Errorf("seeding terminals: %w", err)
		}
	}
	admins := make([]admin.User, 0, len(cfg.Admin.Emails))
	for _, e := range cfg.Admin.Emails {
		admins = append(admins, admin.User{Email: e, Role: admin.RoleAdmin})
	}
	if err := admin.Seed(ctx, allowlist, admins...); err != nil {
		a.Close()
		return nil, fmt.Errorf("seeding admins: %w", err)
	}

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		if verifier, err = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer); err != nil {
			a.Close()
			return nil, err
		}
	}

	router := newRouter(cfg.AI)
	svc := tutor.NewService(tutor.Config{
		AI:          router,
		Judge:       judge.New(router, cfg.AI.JudgeModel),
		Store:       store,
		Catalog:     catalog,
		Budget:      budget,
		Events:      events,
		Model:       cfg.AI.TutorModel,
		IdleTimeout: cfg.SessionIdle,
	})
	go svc.Run(ctx)

	mux := http.NewServeMux()
	httpapi.New(httpapi.Config{
		Tutor:          svc,
		Store:          store,
		Terminals:      terminals,
		Allowlist:      allowlist,
		Verifier:       verifier,
		AuthRequired:   cfg.Auth.Required,
		AllowClientKey: cfg.AI.AllowClientKey,
		Checks:         checks,
	}).Register(mux)

	ws := chat.NewServer(chat.Config{
		Tutor:          svc,
		Terminals:      terminals,
		AllowClientKey: cfg.AI.AllowClientKey,
	})
	ws.Register(mux)

	a.handler = mux
	a.gateway = ws.Gateway()
	return a, nil
}

// newRouter registers every configured provider. Google comes first so it
// serves tutoring and judging unless nothing else is set; a Google provider
// without a server key is still registered when students bring their own.
func newRouter(cfg config.AIConfig) *ai.Router {
	r := ai.NewRouter()
	if cfg.Google.APIKey != "" || cfg.AllowClientKey {
		r.Register("google", ai.NewGoogleProvider(cfg.Google.APIKey))
	}
	if cfg.OpenAI.APIKey != "" {
		r.Register("openai", ai.NewOpenAIProvider(cfg.OpenAI.APIKey))
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := ai.NewAnthropicProvider(cfg.Anthropic.APIKey)
		if err != nil {
			slog.Warn("skipping anthropic provider", "error", err)
		} else {
			r.Register("anthropic", p)
		}
	}
	if cfg.DeepSeek.APIKey != "" {
		r.Register("deepseek", ai.NewDeepSeekProvider(cfg.DeepSeek.APIKey))
	}
	if cfg.OpenRouter.APIKey != "" {
		r.Register("openrouter", ai.NewOpenRouterProvider(cfg.OpenRouter.APIKey))
	}
	if cfg.Ollama.Enabled {
		r.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL))
	}
	for _, task := range []ai.TaskType{ai.TaskTutoring, ai.TaskJudging} {
		if name, ok := r.Route(task); ok {
			slog.Info("AI route", "task", task.String(), "provider", name)
		}
	}
	return r
}
