// Package calendar は月間カレンダー（モザイク）の構築を提供する。
//
// 日付グリッドの構築、祝日・季節の装飾、気分色の割り当てを行い、
// テンプレートやJSON APIにそのまま渡せる表示用の構造体を返す。
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// WeekStart は週の開始曜日の規約を表す。
type WeekStart string

const (
	// WeekStartSunday は日曜始まり（time.Weekdayの値をそのまま列番号に使う）。
	WeekStartSunday WeekStart = "sunday"
	// WeekStartMonday は月曜始まり（日曜を列6に移す）。
	WeekStartMonday WeekStart = "monday"
)

// ParseWeekStart は設定値から週の開始曜日を解析する。
func ParseWeekStart(s string) (WeekStart, error) {
	switch WeekStart(strings.ToLower(strings.TrimSpace(s))) {
	case WeekStartSunday:
		return WeekStartSunday, nil
	case WeekStartMonday:
		return WeekStartMonday, nil
	default:
		return "", fmt.Errorf("unsupported week start: %q (allowed: sunday, monday)", s)
	}
}

// column は曜日を週の開始曜日に応じた列番号（0〜6）に変換する。
func (ws WeekStart) column(wd time.Weekday) int {
	if ws == WeekStartMonday {
		if wd == time.Sunday {
			return 6
		}
		return int(wd) - 1
	}
	return int(wd)
}

// Cell はカレンダーの1日分のセル。
type Cell struct {
	Day    int
	Date   string // YYYY-MM-DD
	Record *model.DayRecord
}

// ValidateMonth は0始まりの月インデックスを検証する。
func ValidateMonth(year, month0 int) error {
	if month0 < 0 || month0 > 11 || year < 1 {
		return model.NewInvalidMonthError(year, month0+1)
	}
	return nil
}

// DaysIn は指定月の日数を返す。month0は0始まり（0=1月）。
func DaysIn(year, month0 int) int {
	return time.Date(year, time.Month(month0+2), 0, 0, 0, 0, 0, time.UTC).Day()
}

// LeadingBlanks は月初日を正しい曜日の列に揃えるための空セル数（0〜6）を返す。
func LeadingBlanks(year, month0 int, ws WeekStart) int {
	first := time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC)
	return ws.column(first.Weekday())
}

// FormatDate は年・0始まりの月・日からゼロ埋めされたISO日付文字列を生成する。
func FormatDate(year, month0, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month0+1, day)
}

// BuildGrid は指定月のセル列を構築する。
// 先頭にLeadingBlanks個のnilを置き、その後に1日から月末までのセルを並べる。
// 各セルには日付文字列が完全一致する記録を紐付ける。
func BuildGrid(year, month0 int, records []model.DayRecord, ws WeekStart) ([]*Cell, error) {
	if err := ValidateMonth(year, month0); err != nil {
		return nil, err
	}

	byDate := make(map[string]*model.DayRecord, len(records))
	for i := range records {
		// 先に現れた記録を優先する
		if _, exists := byDate[records[i].Date]; !exists {
			rec := records[i]
			byDate[rec.Date] = &rec
		}
	}

	blanks := LeadingBlanks(year, month0, ws)
	days := DaysIn(year, month0)

	cells := make([]*Cell, 0, blanks+days)
	for i := 0; i < blanks; i++ {
		cells = append(cells, nil)
	}
	for day := 1; day <= days; day++ {
		date := FormatDate(year, month0, day)
		cells = append(cells, &Cell{
			Day:    day,
			Date:   date,
			Record: byDate[date],
		})
	}

	return cells, nil
}

// weekdayLabels は日曜始まりの曜日ラベル。
var weekdayLabels = []string{"日", "月", "火", "水", "木", "金", "土"}

// WeekdayHeader は週の開始曜日に合わせた曜日ラベルの並びを返す。
func WeekdayHeader(ws WeekStart) []string {
	header := make([]string, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		header[ws.column(wd)] = weekdayLabels[wd]
	}
	return header
}
