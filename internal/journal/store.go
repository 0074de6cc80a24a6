// Package journal は日々の気分記録を保持するRecord Storeと、そこから導出する統計を提供する。
package journal

import (
	"sort"
	"sync"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/mood"
)

// Store は日付をキーとした気分記録のインメモリストア。
// 同じ日付の記録は常に1件で、Recordsは日付の降順で返る。
// 複数のゴルーチンから安全に利用できる。
type Store struct {
	mu      sync.RWMutex
	records []model.DayRecord
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{}
}

// Upsert は記録を登録する。同じ日付の記録が既にある場合は置き換える（後勝ち、マージなし）。
// 日付の形式と気分キーを検証し、絵文字とスコアは気分キーから導出し直す。
func (s *Store) Upsert(rec model.DayRecord) (model.DayRecord, error) {
	if _, err := time.Parse(model.DateLayout, rec.Date); err != nil {
		return model.DayRecord{}, model.NewInvalidDateError(rec.Date)
	}

	normalized, err := mood.NewRecord(rec.Date, rec.Mood, rec.Note)
	if err != nil {
		return model.DayRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.records[:0:0]
	for _, r := range s.records {
		if r.Date != normalized.Date {
			filtered = append(filtered, r)
		}
	}
	filtered = append(filtered, normalized)

	// ゼロ埋めされたISO日付なので文字列比較で日付順になる
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date > filtered[j].Date
	})
	s.records = filtered

	return normalized, nil
}

// Records は日付の降順に並んだ記録のコピーを返す。
func (s *Store) Records() []model.DayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.DayRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Get は指定日の記録を返す。
func (s *Store) Get(date string) (model.DayRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.Date == date {
			return r, true
		}
	}
	return model.DayRecord{}, false
}

// Len は記録件数を返す。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
