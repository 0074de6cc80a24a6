package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/mood"
)

// MoodStat は気分ごとの件数と割合。
type MoodStat struct {
	Mood    model.MoodKey `json:"mood"`
	Label   string        `json:"label"`
	Emoji   string        `json:"emoji"`
	Count   int           `json:"count"`
	Percent float64       `json:"percent"`
}

// AggregateByMood は5段階すべての気分について件数と割合を返す。並びは良い順。
// 記録が0件の場合、割合はすべて0になる。
func (s *Store) AggregateByMood() []MoodStat {
	records := s.Records()
	total := len(records)

	counts := make(map[model.MoodKey]int, 5)
	for _, r := range records {
		counts[r.Mood]++
	}

	levels := mood.LevelsBestFirst()
	stats := make([]MoodStat, 0, len(levels))
	for _, l := range levels {
		stat := MoodStat{
			Mood:  l.Key,
			Label: l.Label,
			Emoji: l.Emoji,
			Count: counts[l.Key],
		}
		if total > 0 {
			stat.Percent = float64(stat.Count) / float64(total) * 100
		}
		stats = append(stats, stat)
	}
	return stats
}

// StreakMode は連続記録日数の算出方式。
type StreakMode string

const (
	// StreakPlaceholder は記録件数を3で頭打ちにした値を返す。
	StreakPlaceholder StreakMode = "placeholder"
	// StreakConsecutive は今日で終わる連続した暦日の数を返す。
	StreakConsecutive StreakMode = "consecutive"
)

// ParseStreakMode は設定値から算出方式を解析する。
func ParseStreakMode(s string) (StreakMode, error) {
	switch StreakMode(strings.ToLower(strings.TrimSpace(s))) {
	case StreakPlaceholder:
		return StreakPlaceholder, nil
	case StreakConsecutive:
		return StreakConsecutive, nil
	default:
		return "", fmt.Errorf("unsupported streak mode: %q (allowed: placeholder, consecutive)", s)
	}
}

const placeholderStreakCap = 3

// Streak は指定方式で連続記録日数を算出する。todayは利用者のタイムゾーンでの現在時刻。
func (s *Store) Streak(mode StreakMode, today time.Time) int {
	if mode == StreakConsecutive {
		return s.consecutiveDays(today)
	}
	return min(s.Len(), placeholderStreakCap)
}

// consecutiveDays は今日から過去に向かって記録が途切れるまでの日数を数える。
// 今日の記録がなければ0。
func (s *Store) consecutiveDays(today time.Time) int {
	dates := make(map[string]struct{}, s.Len())
	for _, r := range s.Records() {
		dates[r.Date] = struct{}{}
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	count := 0
	for {
		if _, ok := dates[day.Format(model.DateLayout)]; !ok {
			return count
		}
		count++
		day = day.AddDate(0, 0, -1)
	}
}

// Achievement はダッシュボードに表示する実績。
type Achievement struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Icon   string `json:"icon"`
	Earned bool   `json:"earned"`
}

// Achievements は記録から実績の獲得状況を導出する。
// 7日・30日の実績は表示方式に関係なく実際の連続日数で判定する。
func (s *Store) Achievements(today time.Time) []Achievement {
	streak := s.consecutiveDays(today)

	used := make(map[model.MoodKey]struct{}, 5)
	for _, r := range s.Records() {
		used[r.Mood] = struct{}{}
	}

	return []Achievement{
		{ID: "first_record", Title: "はじめての記録", Icon: "✨", Earned: s.Len() > 0},
		{ID: "week_streak", Title: "7日連続", Icon: "📅", Earned: streak >= 7},
		{ID: "month_streak", Title: "30日連続", Icon: "🏆", Earned: streak >= 30},
		{ID: "all_moods", Title: "すべての気分", Icon: "❤️", Earned: len(used) == len(mood.Levels())},
	}
}

// Summary はダッシュボードの統計欄に表示する値の集まり。
type Summary struct {
	TotalDays    int           `json:"totalDays"`
	Streak       int           `json:"streak"`
	StreakMode   StreakMode    `json:"streakMode"`
	Moods        []MoodStat    `json:"moods"`
	Achievements []Achievement `json:"achievements"`
}

// Summarize は統計欄の値をまとめて算出する。
func (s *Store) Summarize(mode StreakMode, today time.Time) Summary {
	return Summary{
		TotalDays:    s.Len(),
		Streak:       s.Streak(mode, today),
		StreakMode:   mode,
		Moods:        s.AggregateByMood(),
		Achievements: s.Achievements(today),
	}
}
