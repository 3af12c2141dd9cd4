package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recyclebuddy/recyclebuddy/game"
	"github.com/recyclebuddy/recyclebuddy/middleware"
	"github.com/recyclebuddy/recyclebuddy/store"
	"github.com/recyclebuddy/recyclebuddy/utils"
)

// UserController exposes the player's progression.
type UserController struct {
	store      store.Store
	rules      game.Rules
	dailyLimit int
	now        func() time.Time
}

func NewUserController(st store.Store, rules game.Rules, dailyLimit int) *UserController {
	if dailyLimit <= 0 {
		dailyLimit = 3
	}
	return &UserController{store: st, rules: rules, dailyLimit: dailyLimit, now: time.Now}
}

// Info reports XP, level, title, level progress and remaining uploads.
// Read failures fall back to zero values so the page still renders.
func (u *UserController) Info(ctx *gin.Context) {
	username, ok := middleware.CurrentUsername(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	reqCtx := ctx.Request.Context()

	xp := 0
	var createdAt time.Time
	if user, err := u.store.GetUser(reqCtx, username); err != nil {
		utils.Sugar.Warnw("load user xp failed, defaulting to 0", "username", username, "error", err)
	} else {
		xp = user.XP
		createdAt = user.CreatedAt
	}

	used, err := u.store.UploadsToday(reqCtx, username, u.now().Format(dayLayout))
	if err != nil {
		utils.Sugar.Warnw("load upload quota failed, defaulting to 0", "username", username, "error", err)
		used = 0
	}
	remaining := u.dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}

	level := u.rules.Level(xp)
	utils.Success(ctx, gin.H{
		"username":          username,
		"xp":                xp,
		"level":             level,
		"title":             u.rules.Title(level),
		"progress":          u.rules.Progress(xp),
		"uploads_used":      used,
		"uploads_remaining": remaining,
		"daily_limit":       u.dailyLimit,
		"created_at":        createdAt,
	})
}

// Titles lists every title with the player's unlock state.
func (u *UserController) Titles(ctx *gin.Context) {
	username, ok := middleware.CurrentUsername(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	user, err := u.store.GetUser(ctx.Request.Context(), username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
			return
		}
		utils.Sugar.Errorw("load user failed", "username", username, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load user")
		return
	}
	level := u.rules.Level(user.XP)
	utils.Success(ctx, gin.H{
		"level":  level,
		"titles": u.rules.Unlocks(level),
	})
}
