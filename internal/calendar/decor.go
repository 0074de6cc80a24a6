package calendar

import (
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/model"
)

// Holiday は毎年同じ月日に表示する祝日・記念日の装飾。
type Holiday struct {
	Emoji string `json:"emoji"`
	Name  string `json:"name"`
}

type monthDay struct {
	month time.Month
	day   int
}

var holidays = map[monthDay]Holiday{
	{time.January, 1}:   {Emoji: "🎆", Name: "元日"},
	{time.February, 14}: {Emoji: "💝", Name: "バレンタインデー"},
	{time.October, 31}:  {Emoji: "🎃", Name: "ハロウィン"},
	{time.December, 25}: {Emoji: "🎄", Name: "クリスマス"},
	{time.December, 31}: {Emoji: "🎉", Name: "大晦日"},
}

// HolidayFor はISO日付の月日に一致する装飾を返す。年は問わない。
// 日付はタイムゾーンを持たない暦日として解釈するため、実行環境のタイムゾーンで日がずれることはない。
func HolidayFor(date string) (Holiday, bool) {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return Holiday{}, false
	}
	h, ok := holidays[monthDay{d.Month(), d.Day()}]
	return h, ok
}

// Season は現在の季節に応じた装飾。データの計算には使用しない。
type Season struct {
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	Animation string `json:"animation"`
}

var (
	seasonWinter = Season{Name: "winter", Emoji: "❄️", Animation: "animate-pulse-soft"}
	seasonSpring = Season{Name: "spring", Emoji: "🌸", Animation: "animate-bounce"}
	seasonSummer = Season{Name: "summer", Emoji: "☀️", Animation: "animate-spin"}
	seasonAutumn = Season{Name: "autumn", Emoji: "🍂", Animation: "animate-pulse"}
)

// SeasonFor は現在時刻の月から季節の装飾を選ぶ。表示中の月ではなく実際の現在月を使う。
func SeasonFor(now time.Time) Season {
	switch now.Month() {
	case time.December, time.January, time.February:
		return seasonWinter
	case time.March, time.April, time.May:
		return seasonSpring
	case time.June, time.July, time.August:
		return seasonSummer
	default:
		return seasonAutumn
	}
}
