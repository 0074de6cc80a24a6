package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/calendar"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/journal"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/metrics"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/middleware"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/mood"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/onboarding"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/workspace"
)

// recentRecordsLimit はダッシュボードに一覧表示する最近の記録数。
const recentRecordsLimit = 7

// JournalConfig は日記画面の表示設定。
type JournalConfig struct {
	WeekStart  calendar.WeekStart
	StreakMode journal.StreakMode
	// Location は「今日」と季節の判定に使うタイムゾーン。nilの場合はtime.Local。
	Location *time.Location
}

type recordForm struct {
	Date string
	Mood model.MoodKey
	Note string
}

type dashboardPageData struct {
	pageBase
	Mosaic  *calendar.Mosaic
	Summary journal.Summary
	Moods   []mood.Level
	Recent  []model.DayRecord
	Metrics []model.TrackedMetric
	Today   string
	Form    recordForm
	Error   *model.APIError
}

// JournalHandler はトップページ、ダッシュボード、日記の記録のHTTPハンドラー。
type JournalHandler struct {
	workspaces WorkspaceProvider
	sanitizer  NoteSanitizer
	renderer   *Renderer
	metrics    metrics.MetricsCollector
	cookies    CookieConfig
	config     JournalConfig
	now        func() time.Time
}

// NewJournalHandler はJournalHandlerを生成する。
func NewJournalHandler(
	workspaces WorkspaceProvider,
	sanitizer NoteSanitizer,
	renderer *Renderer,
	collector metrics.MetricsCollector,
	cookies CookieConfig,
	config JournalConfig,
) *JournalHandler {
	if config.Location == nil {
		config.Location = time.Local
	}
	return &JournalHandler{
		workspaces: workspaces,
		sanitizer:  sanitizer,
		renderer:   renderer,
		metrics:    collector,
		cookies:    cookies,
		config:     config,
		now:        time.Now,
	}
}

func (h *JournalHandler) today() time.Time {
	return h.now().In(h.config.Location)
}

// Home は初回訪問時にランディングページを表示し、初回訪問マーカーを設定する。
// 訪問済みまたはログイン済みの場合はダッシュボードへ移動する。
// GET /
func (h *JournalHandler) Home(w http.ResponseWriter, r *http.Request) {
	_, loggedIn := middleware.SessionFromContext(r.Context())
	if loggedIn || hasVisited(r) {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}

	h.cookies.setVisited(w)
	h.renderer.Render(w, http.StatusOK, pageLanding, newPageBase(r, "ようこそ"))
}

// Dashboard は日記のダッシュボードを表示する。
// 未ログインの場合は認証画面へ、オンボーディング未完了の場合はウィザードへ移動する。
// GET /app?y=2025&m=12
func (h *JournalHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requireWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if !ws.OnboardingCompleted() {
		http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
		return
	}

	today := h.today()
	year, month0, err := parseMonth(r.URL.Query(), today)
	if err != nil {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}

	h.renderDashboard(w, r, http.StatusOK, ws, year, month0, recordForm{
		Date: today.Format(model.DateLayout),
		Mood: mood.LevelsBestFirst()[0].Key,
	}, nil)
}

// SaveRecord はその日の気分とメモを保存する。同じ日付の記録は置き換える。
// 日付が省略された場合は今日の記録とする。
// POST /app/records
func (h *JournalHandler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	session, ws, ok := requireWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}

	today := h.today()
	form := recordForm{
		Date: strings.TrimSpace(r.PostFormValue("date")),
		Mood: model.MoodKey(r.PostFormValue("mood")),
		Note: h.sanitizer.Sanitize(r.PostFormValue("note")),
	}
	if form.Date == "" {
		form.Date = today.Format(model.DateLayout)
	}

	saved, err := ws.Journal.Upsert(model.DayRecord{
		Date: form.Date,
		Mood: form.Mood,
		Note: form.Note,
	})
	if err != nil {
		apiErr, isAPIErr := asAPIError(err)
		if !isAPIErr {
			slog.Error("failed to save day record", slog.String("error", err.Error()))
			apiErr = model.NewInternalError()
		}
		h.renderDashboard(w, r, formStatus(apiErr), ws, today.Year(), int(today.Month())-1, form, apiErr)
		return
	}

	h.metrics.RecordDaySaved(string(saved.Mood))
	slog.Info("day saved",
		slog.String("user_id", session.User.ID.String()),
		slog.String("date", saved.Date),
		slog.String("mood", string(saved.Mood)),
	)

	seeOther(w, r, monthLocation(saved.Date))
}

// monthLocation は記録日の月のダッシュボードURLを返す。
// dateはUpsertで検証済みのYYYY-MM-DD形式。
func monthLocation(date string) string {
	return "/app?y=" + date[:4] + "&m=" + strings.TrimPrefix(date[5:7], "0")
}

// Mosaic は指定月のモザイクをJSONで返す。
// GET /api/mosaic?y=2025&m=12
func (h *JournalHandler) Mosaic(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	ws := h.workspaces.Workspace(r.Context(), session)

	today := h.today()
	year, month0, err := parseMonth(r.URL.Query(), today)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	m, err := h.buildMosaic(ws, year, month0, today)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, m)
}

// Stats は統計欄の値をJSONで返す。
// GET /api/stats
func (h *JournalHandler) Stats(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFromContext(r.Context())
	ws := h.workspaces.Workspace(r.Context(), session)

	middleware.WriteJSON(w, http.StatusOK, ws.Journal.Summarize(h.config.StreakMode, h.today()))
}

func (h *JournalHandler) buildMosaic(ws *workspace.Workspace, year, month0 int, today time.Time) (*calendar.Mosaic, error) {
	return calendar.BuildMosaic(calendar.MosaicOptions{
		Year:      year,
		Month0:    month0,
		WeekStart: h.config.WeekStart,
		Records:   ws.Journal.Records(),
		Now:       today,
	})
}

func (h *JournalHandler) renderDashboard(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	ws *workspace.Workspace,
	year, month0 int,
	form recordForm,
	apiErr *model.APIError,
) {
	today := h.today()

	m, err := h.buildMosaic(ws, year, month0, today)
	if err != nil {
		slog.Error("failed to build mosaic", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	recent := ws.Journal.Records()
	if len(recent) > recentRecordsLimit {
		recent = recent[:recentRecordsLimit]
	}

	var tracked []model.TrackedMetric
	for _, id := range ws.Onboarding().SelectedMetricIDs {
		if metric, ok := onboarding.FindMetric(id); ok {
			tracked = append(tracked, metric)
		}
	}

	h.renderer.Render(w, status, pageDashboard, dashboardPageData{
		pageBase: newPageBase(r, "ダッシュボード"),
		Mosaic:   m,
		Summary:  ws.Journal.Summarize(h.config.StreakMode, today),
		Moods:    mood.LevelsBestFirst(),
		Recent:   recent,
		Metrics:  tracked,
		Today:    today.Format(model.DateLayout),
		Form:     form,
		Error:    apiErr,
	})
}

// parseMonth はクエリのy（年）とm（1始まりの月）を解析し、年と0始まりの月を返す。
// 省略された値は現在の年月で補う。
func parseMonth(q url.Values, now time.Time) (year, month0 int, err error) {
	year, month0 = now.Year(), int(now.Month())-1

	if v := q.Get("y"); v != "" {
		y, convErr := strconv.Atoi(v)
		if convErr != nil || y > 9999 {
			return 0, 0, model.NewInvalidMonthError(y, month0+1)
		}
		year = y
	}
	if v := q.Get("m"); v != "" {
		m, convErr := strconv.Atoi(v)
		if convErr != nil {
			return 0, 0, model.NewInvalidMonthError(year, 0)
		}
		month0 = m - 1
	}

	if err := calendar.ValidateMonth(year, month0); err != nil {
		return 0, 0, err
	}
	return year, month0, nil
}

// writeAPIError はJSON APIのエラーレスポンスを書き込む。
func writeAPIError(w http.ResponseWriter, err error) {
	apiErr, ok := asAPIError(err)
	if !ok {
		slog.Error("api request failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	middleware.WriteErrorResponse(w, middleware.StatusForError(apiErr), apiErr)
}
