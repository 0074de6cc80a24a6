package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/metrics"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/onboarding"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/workspace"
)

type categoryOption struct {
	onboarding.CategoryInfo
	Active bool
}

type metricOption struct {
	model.TrackedMetric
	Selected bool
}

type onboardingPageData struct {
	pageBase
	Categories    []categoryOption
	Metrics       []metricOption
	Extended      bool
	SelectedCount int
	Error         *model.APIError
}

// OnboardingHandler はメトリクス選択ウィザードのHTTPハンドラー。
type OnboardingHandler struct {
	service    OnboardingServiceInterface
	workspaces WorkspaceProvider
	renderer   *Renderer
	metrics    metrics.MetricsCollector
}

// NewOnboardingHandler はOnboardingHandlerを生成する。
func NewOnboardingHandler(
	service OnboardingServiceInterface,
	workspaces WorkspaceProvider,
	renderer *Renderer,
	collector metrics.MetricsCollector,
) *OnboardingHandler {
	return &OnboardingHandler{
		service:    service,
		workspaces: workspaces,
		renderer:   renderer,
		metrics:    collector,
	}
}

// Show はウィザードを表示する。完了済みの場合はダッシュボードへ移動する。
// GET /onboarding
func (h *OnboardingHandler) Show(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requireWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if ws.OnboardingCompleted() {
		http.Redirect(w, r, "/app", http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, ws, nil)
}

// Toggle はメトリクスの選択を切り替える。
// POST /onboarding/toggle
func (h *OnboardingHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requireWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := ws.Selector.Toggle(r.PostFormValue("metric")); err != nil {
		h.renderError(w, r, ws, err)
		return
	}
	seeOther(w, r, "/onboarding")
}

// Filter はカテゴリフィルタを変更する。
// POST /onboarding/filter
func (h *OnboardingHandler) Filter(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requireWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	if err := ws.Selector.SetCategory(model.MetricCategory(r.PostFormValue("category"))); err != nil {
		h.renderError(w, r, ws, err)
		return
	}
	seeOther(w, r, "/onboarding")
}

// Extended は拡張メトリクスの表示を切り替える。
// POST /onboarding/extended
func (h *OnboardingHandler) Extended(w http.ResponseWriter, r *http.Request) {
	_, ws, ok := requireWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}
	on, _ := strconv.ParseBool(r.PostFormValue("extended"))
	ws.Selector.SetExtended(on)
	seeOther(w, r, "/onboarding")
}

// Complete は選択を確定して外部APIに保存し、ダッシュボードへ移動する。
// 選択が空の場合や保存に失敗した場合はウィザードを再表示し、完了済みにはしない。
// POST /onboarding/complete
func (h *OnboardingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	session, ws, ok := requireWorkspace(w, r, h.workspaces)
	if !ok {
		return
	}

	state, err := h.service.Complete(r.Context(), session.User.ID, ws.Selector)
	if err != nil {
		h.renderError(w, r, ws, err)
		return
	}

	ws.SetOnboarding(state)
	h.metrics.RecordOnboardingCompleted()
	seeOther(w, r, "/app")
}

func (h *OnboardingHandler) renderError(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, err error) {
	apiErr, ok := asAPIError(err)
	if !ok {
		slog.Error("onboarding action failed", slog.String("error", err.Error()))
		h.render(w, r, http.StatusInternalServerError, ws, model.NewInternalError())
		return
	}
	h.render(w, r, formStatus(apiErr), ws, apiErr)
}

func (h *OnboardingHandler) render(w http.ResponseWriter, r *http.Request, status int, ws *workspace.Workspace, apiErr *model.APIError) {
	sel := ws.Selector
	active := sel.Category()

	cats := onboarding.Categories()
	categories := make([]categoryOption, len(cats))
	for i, c := range cats {
		categories[i] = categoryOption{CategoryInfo: c, Active: c.ID == active}
	}

	visible := sel.Visible()
	options := make([]metricOption, len(visible))
	for i, m := range visible {
		options[i] = metricOption{TrackedMetric: m, Selected: sel.IsSelected(m.ID)}
	}

	h.renderer.Render(w, status, pageOnboarding, onboardingPageData{
		pageBase:      newPageBase(r, "記録する項目を選ぶ"),
		Categories:    categories,
		Metrics:       options,
		Extended:      sel.Extended(),
		SelectedCount: len(sel.Selected()),
		Error:         apiErr,
	})
}
