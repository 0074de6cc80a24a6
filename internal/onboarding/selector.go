package onboarding

import (
	"sync"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// Selector はウィザード中のメトリクス選択状態を保持する。
// 選択済みIDの集合、カテゴリフィルタ、拡張メトリクスの表示切替を持つ。
type Selector struct {
	mu       sync.RWMutex
	selected map[string]struct{}
	category model.MetricCategory
	extended bool
}

// NewSelector はデフォルト選択（気分・メモ）、カテゴリ「すべて」、拡張非表示の状態で生成する。
func NewSelector() *Selector {
	s := &Selector{
		selected: make(map[string]struct{}, len(catalog)),
		category: model.CategoryAll,
	}
	for _, id := range DefaultSelection {
		s.selected[id] = struct{}{}
	}
	return s
}

// Toggle はメトリクスの選択状態を反転する。カタログにないIDはエラー。
func (s *Selector) Toggle(id string) error {
	if _, ok := FindMetric(id); !ok {
		return model.NewUnknownMetricError(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	return nil
}

// SetCategory はカテゴリフィルタを変更する。
func (s *Selector) SetCategory(c model.MetricCategory) error {
	if !knownCategory(c) {
		return model.NewUnknownCategoryError(string(c))
	}

	s.mu.Lock()
	s.category = c
	s.mu.Unlock()
	return nil
}

// SetExtended は拡張メトリクスの表示を切り替える。
func (s *Selector) SetExtended(on bool) {
	s.mu.Lock()
	s.extended = on
	s.mu.Unlock()
}

// Category は現在のカテゴリフィルタを返す。
func (s *Selector) Category() model.MetricCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.category
}

// Extended は拡張メトリクスが表示中かを返す。
func (s *Selector) Extended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.extended
}

// IsSelected はメトリクスが選択済みかを返す。
func (s *Selector) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.selected[id]
	return ok
}

// Selected は選択済みIDをカタログ順で返す。
func (s *Selector) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.selected))
	for _, m := range catalog {
		if _, ok := s.selected[m.ID]; ok {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Visible はフィルタ条件に一致するメトリクスを返す。
// (カテゴリ一致 または フィルタが「すべて」) かつ (基本メトリクス または 拡張表示中)。
func (s *Selector) Visible() []model.TrackedMetric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TrackedMetric, 0, len(catalog))
	for _, m := range catalog {
		categoryMatch := s.category == model.CategoryAll || m.Category == s.category
		tierMatch := s.extended || m.Tier == model.TierBasic
		if categoryMatch && tierMatch {
			out = append(out, m)
		}
	}
	return out
}

// Complete は選択を確定し、選択済みIDを返す。
// 1件も選択されていない場合はエラーを返し、状態は変更しない。
func (s *Selector) Complete() ([]string, error) {
	ids := s.Selected()
	if len(ids) == 0 {
		return nil, model.NewEmptySelectionError()
	}
	return ids, nil
}

// Restore は保存済みの選択でSelectorの選択状態を置き換える。カタログにないIDは無視する。
func (s *Selector) Restore(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selected = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := FindMetric(id); ok {
			s.selected[id] = struct{}{}
		}
	}
}
