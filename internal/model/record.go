package model

// DateLayout は記録の日付キーの書式（ISO 8601 の日付部分）。
// ゼロ埋めされているため文字列の辞書順比較がそのまま日付順になる。
const DateLayout = "2006-01-02"

// MoodKey は5段階の気分を識別するキー。
type MoodKey string

// 気分キー（悪い順）
const (
	MoodBad   MoodKey = "bad"
	MoodSad   MoodKey = "sad"
	MoodOkay  MoodKey = "okay"
	MoodGood  MoodKey = "good"
	MoodGreat MoodKey = "great"
)

// DayRecord は1日分の日記記録を表す。
// 1つのRecord Store内でDateは一意。
type DayRecord struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Mood      MoodKey `json:"mood"`
	Emoji     string  `json:"emoji"`
	Note      string  `json:"note"`
	MoodScore int     `json:"moodScore"` // 1=最悪, 5=最高
}
