package main

import (
	"context"
	"time"

	"github.com/recyclebuddy/recyclebuddy/config"
	"github.com/recyclebuddy/recyclebuddy/game"
	"github.com/recyclebuddy/recyclebuddy/quiz"
	"github.com/recyclebuddy/recyclebuddy/routes"
	"github.com/recyclebuddy/recyclebuddy/store"
	"github.com/recyclebuddy/recyclebuddy/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	st, err := store.Open(cfg)
	if err != nil {
		utils.Sugar.Fatalf("open store (%s) failed: %v", cfg.Store.Driver, err)
	}
	defer st.Close()

	var sessions quiz.SessionStore = quiz.NewMemorySessionStore()
	if err := utils.InitRedis(cfg); err != nil {
		utils.Sugar.Warnw("redis unavailable, using in-process sessions", "error", err)
	} else if rc := utils.GetRedis(); rc != nil {
		sessions = quiz.NewRedisSessionStore(rc)
		defer utils.CloseRedis()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gemini, err := quiz.NewGeminiModel(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		utils.Sugar.Fatalf("init gemini client failed: %v", err)
	}
	model := quiz.NewBreakerModel(gemini, quiz.BreakerSettings{
		Name:                "gemini",
		ConsecutiveFailures: cfg.Gemini.BreakerFailures,
		Cooldown:            time.Duration(cfg.Gemini.BreakerCooldownSec) * time.Second,
	})
	pipeline := quiz.NewPipeline(model, time.Duration(cfg.Gemini.TimeoutSec)*time.Second)

	rules := game.NewRules(cfg.Game.XPCorrect, cfg.Game.XPWrong, cfg.Game.XPPerLevel)

	r := routes.SetupRouter(cfg, routes.Deps{
		Store:    st,
		Pipeline: pipeline,
		Sessions: sessions,
		Rules:    rules,
	})

	// Background cleanup for old uploads (best-effort)
	utils.StartUploadCleaner(ctx, cfg.Uploads.Dir, time.Duration(cfg.Uploads.RetentionHours)*time.Hour, 10*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful), store=%s model=%s", cfg.App.Port, cfg.Store.Driver, cfg.Gemini.Model)
	if err := utils.GraceServer(":"+cfg.App.Port, r); err != nil {
		utils.Sugar.Errorf("server stopped with error: %v", err)
	}
}
