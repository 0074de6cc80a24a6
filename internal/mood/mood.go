// Package mood は5段階の気分定義と、気分スコアから表示色への変換を提供する。
package mood

import "github.com/pr-poehali-dev/digital-diary-architecture/internal/model"

// Level は気分の1段階を表す。キーと絵文字は1対1で対応する。
type Level struct {
	Key   model.MoodKey
	Label string
	Emoji string
	Score int
}

// levels は悪い順に並べた気分の一覧。Scoreは1から5の連番。
var levels = []Level{
	{Key: model.MoodBad, Label: "つらい", Emoji: "😫", Score: 1},
	{Key: model.MoodSad, Label: "悲しい", Emoji: "😔", Score: 2},
	{Key: model.MoodOkay, Label: "ふつう", Emoji: "😐", Score: 3},
	{Key: model.MoodGood, Label: "良い", Emoji: "😌", Score: 4},
	{Key: model.MoodGreat, Label: "最高", Emoji: "😊", Score: 5},
}

// Levels は悪い順の気分一覧のコピーを返す。
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

// LevelsBestFirst は良い順の気分一覧を返す。ダッシュボードの選択肢と統計の表示順。
func LevelsBestFirst() []Level {
	out := make([]Level, 0, len(levels))
	for i := len(levels) - 1; i >= 0; i-- {
		out = append(out, levels[i])
	}
	return out
}

// Lookup はキーに対応する気分を返す。未定義のキーの場合はfalseを返す。
func Lookup(key model.MoodKey) (Level, bool) {
	for _, l := range levels {
		if l.Key == key {
			return l, true
		}
	}
	return Level{}, false
}

// NewRecord は気分キーから絵文字とスコアを補完したDayRecordを生成する。
// 未定義のキーの場合はエラーを返す。
func NewRecord(date string, key model.MoodKey, note string) (model.DayRecord, error) {
	l, ok := Lookup(key)
	if !ok {
		return model.DayRecord{}, model.NewInvalidMoodError(string(key))
	}
	return model.DayRecord{
		Date:      date,
		Mood:      l.Key,
		Emoji:     l.Emoji,
		Note:      note,
		MoodScore: l.Score,
	}, nil
}
