package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/calendar"
)

//go:embed templates/*.html
var templateFS embed.FS

// 画面テンプレート名
const (
	pageLanding    = "landing"
	pageAuth       = "auth"
	pageOnboarding = "onboarding"
	pageDashboard  = "dashboard"
	pageNotFound   = "not_found"
)

var templateFuncs = template.FuncMap{
	// cellStyle はモザイクのセル色をstyle属性に埋め込む。
	// 色はcalendar/moodパッケージの定数のみで、利用者の入力は含まれない。
	"cellStyle": func(c *calendar.MosaicCell) template.CSS {
		return template.CSS("background:" + c.Background + ";color:" + c.TextColor)
	},
	"barStyle": func(percent float64) template.CSS {
		return template.CSS("width:" + strconv.FormatFloat(percent, 'f', 1, 64) + "%")
	},
	"percent": func(p float64) string {
		return strconv.FormatFloat(p, 'f', 0, 64)
	},
}

// Renderer は埋め込みテンプレートから画面を描画する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は全画面のテンプレートを解析してRendererを生成する。
// 各画面はlayout.htmlと組み合わせて個別に解析する。
func NewRenderer() (*Renderer, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageLanding, pageAuth, pageOnboarding, pageDashboard, pageNotFound} {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Render は画面を描画してstatusで返す。
// 描画途中で失敗した場合に部分的なHTMLを返さないよう、バッファに書き出してから送信する。
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := r.pages[page]
	if !ok {
		slog.Error("unknown template", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
