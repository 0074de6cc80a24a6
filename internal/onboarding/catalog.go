// Package onboarding はメトリクス選択ウィザードの状態管理と完了処理を提供する。
package onboarding

import "github.com/pr-poehali-dev/digital-diary-architecture/internal/model"

// catalog は選択可能なメトリクスの静的カタログ。基本7件、拡張8件。
var catalog = []model.TrackedMetric{
	{ID: "mood", Name: "気分", Icon: "😊", Category: model.CategoryMood, Tier: model.TierBasic, Description: "感情の記録", Color: "bg-pastel-pink"},
	{ID: "sleep", Name: "睡眠", Icon: "🌙", Category: model.CategoryHealth, Tier: model.TierBasic, Description: "睡眠時間", Color: "bg-pastel-purple"},
	{ID: "coffee", Name: "コーヒー", Icon: "☕", Category: model.CategoryHealth, Tier: model.TierBasic, Description: "1日の杯数", Color: "bg-pastel-peach"},
	{ID: "steps", Name: "歩数", Icon: "👣", Category: model.CategoryHealth, Tier: model.TierBasic, Description: "身体活動", Color: "bg-pastel-green"},
	{ID: "weather", Name: "天気", Icon: "☁️", Category: model.CategoryMood, Tier: model.TierBasic, Description: "天候", Color: "bg-pastel-blue"},
	{ID: "note", Name: "メモ", Icon: "📝", Category: model.CategoryProductivity, Tier: model.TierBasic, Description: "日記", Color: "bg-pastel-yellow"},
	{ID: "photo", Name: "今日の写真", Icon: "📷", Category: model.CategoryCreativity, Tier: model.TierBasic, Description: "写真で残す思い出", Color: "bg-pastel-pink"},

	{ID: "energy", Name: "エネルギー", Icon: "⚡", Category: model.CategoryHealth, Tier: model.TierExtended, Description: "活力のレベル", Color: "bg-pastel-yellow"},
	{ID: "water", Name: "水分", Icon: "💧", Category: model.CategoryHealth, Tier: model.TierExtended, Description: "水の杯数", Color: "bg-pastel-blue"},
	{ID: "calories", Name: "カロリー", Icon: "🍽️", Category: model.CategoryHealth, Tier: model.TierExtended, Description: "食事", Color: "bg-pastel-peach"},
	{ID: "meditation", Name: "瞑想", Icon: "✨", Category: model.CategoryHealth, Tier: model.TierExtended, Description: "瞑想した分数", Color: "bg-pastel-purple"},
	{ID: "reading", Name: "読書", Icon: "📖", Category: model.CategoryCreativity, Tier: model.TierExtended, Description: "読んだページ数", Color: "bg-pastel-green"},
	{ID: "exercise", Name: "運動", Icon: "🏋️", Category: model.CategoryHealth, Tier: model.TierExtended, Description: "トレーニング", Color: "bg-pastel-pink"},
	{ID: "hobby", Name: "趣味", Icon: "🎨", Category: model.CategoryCreativity, Tier: model.TierExtended, Description: "創作活動", Color: "bg-pastel-yellow"},
	{ID: "social", Name: "交流", Icon: "👥", Category: model.CategorySocial, Tier: model.TierExtended, Description: "人と会った時間", Color: "bg-pastel-blue"},
}

// CategoryInfo はカテゴリフィルタの表示情報。
type CategoryInfo struct {
	ID   model.MetricCategory
	Name string
	Icon string
}

var categories = []CategoryInfo{
	{ID: model.CategoryAll, Name: "すべて", Icon: "🔲"},
	{ID: model.CategoryHealth, Name: "健康", Icon: "❤️"},
	{ID: model.CategoryProductivity, Name: "生産性", Icon: "🎯"},
	{ID: model.CategoryMood, Name: "気分", Icon: "😊"},
	{ID: model.CategoryCreativity, Name: "創造性", Icon: "🎨"},
	{ID: model.CategorySocial, Name: "交流", Icon: "👥"},
}

// DefaultSelection はウィザード開始時に選択済みとするメトリクス。
var DefaultSelection = []string{"mood", "note"}

// Catalog はメトリクスカタログのコピーを返す。
func Catalog() []model.TrackedMetric {
	out := make([]model.TrackedMetric, len(catalog))
	copy(out, catalog)
	return out
}

// Categories はカテゴリフィルタの一覧を返す。先頭は「すべて」。
func Categories() []CategoryInfo {
	out := make([]CategoryInfo, len(categories))
	copy(out, categories)
	return out
}

// FindMetric はIDに対応するメトリクスを返す。
func FindMetric(id string) (model.TrackedMetric, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return model.TrackedMetric{}, false
}

func knownCategory(c model.MetricCategory) bool {
	for _, info := range categories {
		if info.ID == c {
			return true
		}
	}
	return false
}
