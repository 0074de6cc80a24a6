package calendar

import (
	"fmt"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/mood"
)

// TooltipNoteRunes はツールチップに表示するメモの最大文字数（2行分）。
const TooltipNoteRunes = 60

const (
	filledTextColor = "#fff"
	emptyTextColor  = "hsl(240 4% 46%)"
)

// Tooltip は記録のある日にホバーで表示する情報。
type Tooltip struct {
	Emoji     string `json:"emoji"`
	MoodLabel string `json:"moodLabel"`
	DateLabel string `json:"dateLabel"`
	Note      string `json:"note,omitempty"`
}

// MosaicCell はモザイクの1日分のセル。
type MosaicCell struct {
	Day        int              `json:"day"`
	Date       string           `json:"date"`
	Record     *model.DayRecord `json:"record,omitempty"`
	Holiday    *Holiday         `json:"holiday,omitempty"`
	Background string           `json:"background"`
	TextColor  string           `json:"textColor"`
	Label      string           `json:"label"`
	AriaLabel  string           `json:"ariaLabel"`
	Tooltip    *Tooltip         `json:"tooltip,omitempty"`
	IsToday    bool             `json:"isToday"`
}

// MonthRef は年と1始まりの月の組。ナビゲーションリンクに使う。
type MonthRef struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Mosaic は1か月分のモザイク表示データ。
// Cellsのnil要素は曜日揃えのための空セルを表す。
type Mosaic struct {
	Year     int           `json:"year"`
	Month    int           `json:"month"`
	Title    string        `json:"title"`
	Weekdays []string      `json:"weekdays"`
	Cells    []*MosaicCell `json:"cells"`
	Season   Season        `json:"season"`
	Prev     MonthRef      `json:"prev"`
	Next     MonthRef      `json:"next"`
}

// MosaicOptions はBuildMosaicの入力。Month0は0始まり。
type MosaicOptions struct {
	Year      int
	Month0    int
	WeekStart WeekStart
	Records   []model.DayRecord
	// Now は今日の判定と季節の装飾に使う現在時刻。
	Now time.Time
}

// BuildMosaic は日付グリッドに気分色・祝日・ツールチップを合成したモザイクを構築する。
func BuildMosaic(opts MosaicOptions) (*Mosaic, error) {
	grid, err := BuildGrid(opts.Year, opts.Month0, opts.Records, opts.WeekStart)
	if err != nil {
		return nil, err
	}

	today := opts.Now.Format(model.DateLayout)

	cells := make([]*MosaicCell, len(grid))
	for i, c := range grid {
		if c == nil {
			continue
		}
		cells[i] = decorateCell(c, today)
	}

	first := time.Date(opts.Year, time.Month(opts.Month0+1), 1, 0, 0, 0, 0, time.UTC)
	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)

	return &Mosaic{
		Year:     opts.Year,
		Month:    opts.Month0 + 1,
		Title:    MonthTitle(opts.Year, opts.Month0),
		Weekdays: WeekdayHeader(opts.WeekStart),
		Cells:    cells,
		Season:   SeasonFor(opts.Now),
		Prev:     MonthRef{Year: prev.Year(), Month: int(prev.Month())},
		Next:     MonthRef{Year: next.Year(), Month: int(next.Month())},
	}, nil
}

func decorateCell(c *Cell, today string) *MosaicCell {
	mc := &MosaicCell{
		Day:        c.Day,
		Date:       c.Date,
		Record:     c.Record,
		Background: mood.EmptyCellBackground,
		TextColor:  emptyTextColor,
		Label:      fmt.Sprintf("%d", c.Day),
		AriaLabel:  fmt.Sprintf("%d日", c.Day),
		IsToday:    c.Date == today,
	}

	if h, ok := HolidayFor(c.Date); ok {
		mc.Holiday = &h
	}

	if c.Record != nil {
		color := mood.ColorFor(c.Record.MoodScore)
		moodLabel := color.Label
		if l, ok := mood.Lookup(c.Record.Mood); ok {
			moodLabel = l.Label
		}

		mc.Background = color.Background
		mc.TextColor = filledTextColor
		mc.Label = c.Record.Emoji
		mc.AriaLabel = fmt.Sprintf("%d日、気分: %s", c.Day, moodLabel)
		mc.Tooltip = &Tooltip{
			Emoji:     c.Record.Emoji,
			MoodLabel: moodLabel,
			DateLabel: DateLabel(c.Date),
			Note:      truncateRunes(c.Record.Note, TooltipNoteRunes),
		}
	}

	return mc
}

// MonthTitle は「2025年12月」形式の見出しを返す。
func MonthTitle(year, month0 int) string {
	return fmt.Sprintf("%d年%d月", year, month0+1)
}

// DateLabel はISO日付を「12月18日」形式に変換する。解析できない場合は入力をそのまま返す。
func DateLabel(date string) string {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d月%d日", int(d.Month()), d.Day())
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
