// Package workspace はログインセッションごとの作業状態（日記ストア、オンボーディング選択）を管理する。
//
// Workspaceはログインで作成され、ログアウトまたはセッションの期限切れで破棄される。
// 異なるセッション間で状態を共有することはない。
package workspace

import (
	"sync"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/journal"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/onboarding"
)

// Workspace は1セッション分の作業状態。
type Workspace struct {
	Journal  *journal.Store
	Selector *onboarding.Selector

	mu         sync.RWMutex
	onboarding model.OnboardingState
	createdAt  time.Time
}

func newWorkspace(now time.Time) *Workspace {
	return &Workspace{
		Journal:   journal.NewStore(),
		Selector:  onboarding.NewSelector(),
		createdAt: now,
	}
}

// Onboarding は現在のオンボーディング状態を返す。
func (w *Workspace) Onboarding() model.OnboardingState {
	w.mu.RLock()
	defer w.mu.RUnlock()

	state := w.onboarding
	state.SelectedMetricIDs = append([]string(nil), w.onboarding.SelectedMetricIDs...)
	return state
}

// SetOnboarding はオンボーディング状態を置き換える。
// 完了済みの場合は保存済みの選択をSelectorにも反映する。
func (w *Workspace) SetOnboarding(state model.OnboardingState) {
	w.mu.Lock()
	w.onboarding = state
	w.mu.Unlock()

	if state.Completed && len(state.SelectedMetricIDs) > 0 {
		w.Selector.Restore(state.SelectedMetricIDs)
	}
}

// OnboardingCompleted はオンボーディングが完了済みかを返す。
func (w *Workspace) OnboardingCompleted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.onboarding.Completed
}

// Manager はセッションIDをキーにWorkspaceを保持する。
type Manager struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	now        func() time.Time
}

// NewManager はManagerを生成する。
func NewManager() *Manager {
	return &Manager{
		workspaces: make(map[string]*Workspace),
		now:        time.Now,
	}
}

// Open はセッションのWorkspaceを返す。存在しない場合は新規作成し、createdにtrueを返す。
func (m *Manager) Open(sessionID string) (ws *Workspace, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.workspaces[sessionID]; ok {
		return ws, false
	}
	ws = newWorkspace(m.now())
	m.workspaces[sessionID] = ws
	return ws, true
}

// Get はセッションのWorkspaceを返す。
func (m *Manager) Get(sessionID string) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[sessionID]
	return ws, ok
}

// Close はセッションのWorkspaceを破棄する。
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workspaces, sessionID)
}

// DeleteCreatedBefore はcutoffより前に作成されたWorkspaceを破棄し、破棄した数を返す。
func (m *Manager) DeleteCreatedBefore(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, ws := range m.workspaces {
		if ws.createdAt.Before(cutoff) {
			delete(m.workspaces, id)
			n++
		}
	}
	return n
}

// Len は保持しているWorkspace数を返す。
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}
