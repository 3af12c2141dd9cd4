package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/recyclebuddy/recyclebuddy/middleware"
	"github.com/recyclebuddy/recyclebuddy/models"
	"github.com/recyclebuddy/recyclebuddy/store"
	"github.com/recyclebuddy/recyclebuddy/utils"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 4
	// bcrypt ignores input past 72 bytes
	maxPasswordLen = 72
)

// AuthOptions tunes registration and token issuance.
type AuthOptions struct {
	TokenTTL       time.Duration
	CaptchaEnabled bool
	// successful registrations allowed per IP per day, 0 disables the check
	MaxPerIPPerDay int
}

// AuthController handles registration, login and logout.
type AuthController struct {
	store store.Store
	opts  AuthOptions
}

// NewAuthController creates an AuthController.
func NewAuthController(st store.Store, opts AuthOptions) *AuthController {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 72 * time.Hour
	}
	return &AuthController{store: st, opts: opts}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username        string `json:"username" form:"username"`
		Password        string `json:"password" form:"password"`
		ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
		CaptchaID       string `json:"captcha_id" form:"captcha_id"`
		CaptchaAnswer   string `json:"captcha_answer" form:"captcha_answer"`
	}

	var req request
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if l := len([]rune(req.Username)); l < minUsernameLen || l > maxUsernameLen {
		utils.Error(ctx, http.StatusBadRequest, 40002, "使用者名稱需為3-32個字元")
		return
	}
	if !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "使用者名稱僅允許中文、英文、數字及 '-' '_'")
		return
	}
	if len(req.Password) < minPasswordLen {
		utils.Error(ctx, http.StatusBadRequest, 40003, "密碼至少需要4個字元")
		return
	}
	if len(req.Password) > maxPasswordLen {
		utils.Error(ctx, http.StatusBadRequest, 40003, "密碼過長")
		return
	}
	if req.Password != req.ConfirmPassword {
		utils.Error(ctx, http.StatusBadRequest, 40004, "兩次輸入的密碼不一致")
		return
	}
	if a.opts.CaptchaEnabled &&
		!utils.VerifyCaptcha(strings.TrimSpace(req.CaptchaID), strings.TrimSpace(req.CaptchaAnswer)) {
		utils.Error(ctx, http.StatusBadRequest, 40005, "驗證碼錯誤或已過期")
		return
	}

	ip := ctx.ClientIP()
	if !utils.RegistrationDailyLimitCheck(ip, a.opts.MaxPerIPPerDay) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "今日註冊次數已達上限")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user, err := a.store.CreateUser(ctx.Request.Context(), req.Username, hash)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			utils.Error(ctx, http.StatusConflict, 40901, "使用者名稱已存在")
			return
		}
		utils.Sugar.Errorw("create user failed", "username", req.Username, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}
	utils.RegistrationDailyIncrement(ip)
	utils.Sugar.Infow("user registered", "username", user.Username, "ip", ip)

	a.issueToken(ctx, user, http.StatusCreated)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" form:"username" binding:"required"`
		Password string `json:"password" form:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	user, err := a.store.GetUser(ctx.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			utils.Sugar.Errorw("load user failed", "username", req.Username, "error", err)
			utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to load user")
			return
		}
		utils.Error(ctx, http.StatusUnauthorized, 40106, "帳號或密碼錯誤")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "帳號或密碼錯誤")
		return
	}

	a.issueToken(ctx, user, http.StatusOK)
}

func (a *AuthController) issueToken(ctx *gin.Context, user *models.User, status int) {
	token, err := utils.GenerateToken(user.Username, a.opts.TokenTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token":      token,
		"expires_in": int(a.opts.TokenTTL.Seconds()),
		"user":       user,
	})
}

// Logout revokes the current token id until the token expires. Other sessions stay valid.
func (a *AuthController) Logout(ctx *gin.Context) {
	tokenID := ctx.GetString(middleware.ContextTokenIDKey)
	if tokenID == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	expiresAt := time.Now().Add(a.opts.TokenTTL)
	if v, ok := ctx.Get(middleware.ContextTokenExpiryKey); ok {
		if t, ok := v.(time.Time); ok {
			expiresAt = t
		}
	}

	utils.RevokeToken(tokenID, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Captcha returns a fresh captcha id and base64 image (data URI).
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, b64, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "產生驗證碼失敗")
		return
	}
	utils.Success(ctx, gin.H{"id": id, "image": b64, "enabled": a.opts.CaptchaEnabled})
}

// validUsername allows letters, digits, '-', '_' and CJK ideographs.
// Usernames become upload directory names, so path separators and dots are rejected.
func validUsername(s string) bool {
	for _, r := range s {
		switch {
		case r == '-' || r == '_':
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		case unicode.Is(unicode.Han, r):
		default:
			return false
		}
	}
	return true
}
