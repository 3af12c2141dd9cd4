package controllers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/recyclebuddy/recyclebuddy/game"
	"github.com/recyclebuddy/recyclebuddy/middleware"
	"github.com/recyclebuddy/recyclebuddy/quiz"
	"github.com/recyclebuddy/recyclebuddy/store"
	"github.com/recyclebuddy/recyclebuddy/utils"
)

const dayLayout = "2006-01-02"

// uploadNameRe matches stored upload names: <sha256 hex><ext>.
var uploadNameRe = regexp.MustCompile(`^[0-9a-f]{64}\.[a-z0-9]{1,5}$`)

// QuizOptions carries the quota and upload limits.
type QuizOptions struct {
	DailyLimit     int
	MaxUploadBytes int64
	UploadDir      string
	QuizTTL        time.Duration
}

// QuizController drives scan → quiz → answer for the authenticated player.
type QuizController struct {
	store    store.Store
	pipeline *quiz.Pipeline
	sessions quiz.SessionStore
	rules    game.Rules
	opts     QuizOptions
	now      func() time.Time
}

// NewQuizController creates a QuizController.
func NewQuizController(st store.Store, pipeline *quiz.Pipeline, sessions quiz.SessionStore, rules game.Rules, opts QuizOptions) *QuizController {
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = 3
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.QuizTTL <= 0 {
		opts.QuizTTL = 30 * time.Minute
	}
	return &QuizController{
		store:    st,
		pipeline: pipeline,
		sessions: sessions,
		rules:    rules,
		opts:     opts,
		now:      time.Now,
	}
}

func (q *QuizController) today() string {
	return q.now().Format(dayLayout)
}

// quizView is what the client sees before answering; the answer letter is withheld.
type quizView struct {
	ID        string        `json:"id"`
	Item      string        `json:"item"`
	Question  string        `json:"question"`
	Options   string        `json:"options"`
	Choices   []quiz.Choice `json:"choices"`
	Complete  bool          `json:"complete"`
	ImageURL  string        `json:"image_url,omitempty"`
	ExpiresAt time.Time     `json:"expires_at"`
}

func newQuizView(p quiz.Pending) quizView {
	choices := p.Result.Choices()
	for i := range choices {
		choices[i].Text = utils.Sanitize(choices[i].Text)
	}
	v := quizView{
		ID:        p.ID,
		Item:      utils.Sanitize(p.Item),
		Question:  utils.Sanitize(p.Result.QuestionText()),
		Options:   utils.Sanitize(p.Result.OptionsText()),
		Choices:   choices,
		Complete:  p.Result.Complete(),
		ExpiresAt: p.ExpiresAt,
	}
	if p.ImageName != "" {
		v.ImageURL = "/api/v1/uploads/" + p.ImageName
	}
	return v
}

// Scan accepts a photo, checks quota and duplicates, and generates a quiz for it.
// Quota is spent only once a quiz was produced, so upstream failures cost nothing.
func (q *QuizController) Scan(ctx *gin.Context) {
	username, ok := middleware.CurrentUsername(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	reqCtx := ctx.Request.Context()
	day := q.today()

	used, err := q.store.UploadsToday(reqCtx, username, day)
	if err != nil {
		utils.Sugar.Errorw("load upload quota failed", "username", username, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load upload quota")
		return
	}
	if used >= q.opts.DailyLimit {
		utils.Error(ctx, http.StatusTooManyRequests, 42930, "今日上傳次數已達上限")
		return
	}

	file, _, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "no file uploaded")
		return
	}
	defer file.Close()

	lr := &io.LimitedReader{R: file, N: q.opts.MaxUploadBytes + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "failed to read upload")
		return
	}
	if int64(len(data)) > q.opts.MaxUploadBytes {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
		return
	}
	if len(data) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40012, "empty file")
		return
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		utils.Error(ctx, http.StatusBadRequest, 40013, "只接受圖片檔案")
		return
	}

	hash, err := utils.HashReader(bytes.NewReader(data))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to hash image")
		return
	}
	dup, err := q.store.HasImage(reqCtx, username, hash)
	if err != nil {
		utils.Sugar.Errorw("duplicate check failed", "username", username, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to check image history")
		return
	}
	if dup {
		utils.Error(ctx, http.StatusConflict, 40910, "這張圖片之前已經測試過了，請更換一張新的圖片")
		return
	}

	item, err := q.pipeline.Recognize(reqCtx, quiz.Image{Data: data, MIMEType: mt.String()})
	if err != nil {
		utils.Sugar.Warnw("item recognition failed", "username", username, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50201, "AI 辨識失敗，請稍後再試")
		return
	}
	result, err := q.pipeline.Generate(reqCtx, item)
	if err != nil {
		utils.Sugar.Warnw("quiz generation failed", "username", username, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50202, "產生題目失敗，請稍後再試")
		return
	}
	if !result.Complete() {
		utils.Sugar.Warnw("quiz reply partially parsed", "username", username, "result", result)
	}

	used, err = q.store.ConsumeUpload(reqCtx, username, day, q.opts.DailyLimit)
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			utils.Error(ctx, http.StatusTooManyRequests, 42930, "今日上傳次數已達上限")
			return
		}
		utils.Sugar.Errorw("consume upload quota failed", "username", username, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to update upload quota")
		return
	}

	imageName, err := q.saveUpload(username, hash, mt.Extension(), data)
	if err != nil {
		// the quiz stays playable without the stored copy
		utils.Sugar.Warnw("store upload failed", "username", username, "error", err)
	}

	now := q.now()
	pending := quiz.Pending{
		ID:        uuid.NewString(),
		Item:      item,
		ImageHash: hash,
		ImageName: imageName,
		Result:    result,
		CreatedAt: now,
		ExpiresAt: now.Add(q.opts.QuizTTL),
	}
	if err := q.sessions.Save(reqCtx, username, pending, q.opts.QuizTTL); err != nil {
		utils.Sugar.Errorw("save pending quiz failed", "username", username, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to save quiz")
		return
	}
	utils.Sugar.Infow("quiz generated", "username", username, "quiz_id", pending.ID, "uploads_today", used)

	utils.Success(ctx, gin.H{
		"quiz":  newQuizView(pending),
		"quota": q.quotaView(used),
	})
}

func (q *QuizController) saveUpload(username, hash, ext string, data []byte) (string, error) {
	if q.opts.UploadDir == "" {
		return "", nil
	}
	if ext == "" {
		ext = ".img"
	}
	dir := filepath.Join(q.opts.UploadDir, username)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := hash + strings.ToLower(ext)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// Current returns the pending quiz, without its answer.
func (q *QuizController) Current(ctx *gin.Context) {
	username, ok := middleware.CurrentUsername(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	p, err := q.sessions.Peek(ctx.Request.Context(), username)
	if err != nil {
		if errors.Is(err, quiz.ErrNoPendingQuiz) {
			utils.Error(ctx, http.StatusNotFound, 40420, "目前沒有待作答的題目")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load quiz")
		return
	}
	utils.Success(ctx, newQuizView(p))
}

// SubmitAnswer scores the pending quiz: a correct letter earns XPCorrect, any other valid letter XPWrong.
func (q *QuizController) SubmitAnswer(ctx *gin.Context) {
	username, ok := middleware.CurrentUsername(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	var req struct {
		Answer string `json:"answer" form:"answer"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	letter, valid := quiz.ValidLetter(req.Answer)
	if !valid {
		utils.Error(ctx, http.StatusBadRequest, 40021, "請輸入有效的選項 (A/B/C/D)")
		return
	}

	reqCtx := ctx.Request.Context()
	pending, err := q.sessions.Consume(reqCtx, username)
	if err != nil {
		if errors.Is(err, quiz.ErrNoPendingQuiz) {
			utils.Error(ctx, http.StatusNotFound, 40420, "目前沒有待作答的題目")
			return
		}
		utils.Sugar.Errorw("load pending quiz failed", "username", username, "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load quiz")
		return
	}

	// the photo is marked as used before any XP is paid for it
	if err := q.store.RecordImage(reqCtx, username, pending.ImageHash); err != nil {
		utils.Sugar.Errorw("record image hash failed", "username", username, "hash", pending.ImageHash, "error", err)
		q.restorePending(username, pending)
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to record image")
		return
	}

	correct := letter == pending.Result.AnswerLetter()
	delta := q.rules.Award(correct)
	total, err := q.store.AddXP(reqCtx, username, delta)
	if err != nil {
		utils.Sugar.Errorw("add xp failed", "username", username, "error", err)
		q.restorePending(username, pending)
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to update experience")
		return
	}

	outcome := q.rules.Outcome(total, delta)
	utils.Sugar.Infow("quiz answered",
		"username", username, "quiz_id", pending.ID, "correct", correct, "gained", delta, "xp", total)

	utils.Success(ctx, gin.H{
		"correct":        correct,
		"answer":         letter,
		"correct_answer": pending.Result.AnswerLetter(),
		"explanation":    utils.Sanitize(pending.Result.ExplanationText()),
		"outcome":        outcome,
		"progress":       q.rules.Progress(total),
	})
}

// restorePending puts a consumed quiz back so the player can retry after a store failure.
func (q *QuizController) restorePending(username string, p quiz.Pending) {
	ttl := p.ExpiresAt.Sub(q.now())
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.sessions.Save(ctx, username, p, ttl); err != nil {
		utils.Sugar.Warnw("restore pending quiz failed", "username", username, "error", err)
	}
}

type quotaView struct {
	Day       string `json:"day"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
}

func (q *QuizController) quotaView(used int) quotaView {
	remaining := q.opts.DailyLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return quotaView{Day: q.today(), Used: used, Remaining: remaining, Limit: q.opts.DailyLimit}
}

// Quota reports today's upload usage.
func (q *QuizController) Quota(ctx *gin.Context) {
	username, ok := middleware.CurrentUsername(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	used, err := q.store.UploadsToday(ctx.Request.Context(), username, q.today())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to load upload quota")
		return
	}
	utils.Success(ctx, q.quotaView(used))
}

// Upload serves a stored photo back to its owner.
func (q *QuizController) Upload(ctx *gin.Context) {
	username, ok := middleware.CurrentUsername(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	name := ctx.Param("name")
	if !uploadNameRe.MatchString(name) || q.opts.UploadDir == "" {
		utils.Error(ctx, http.StatusNotFound, 40430, "file not found")
		return
	}
	path := filepath.Join(q.opts.UploadDir, username, name)
	if _, err := os.Stat(path); err != nil {
		utils.Error(ctx, http.StatusNotFound, 40430, "file not found")
		return
	}
	ctx.File(path)
}
