package model

// MetricTier はメトリクスの提供区分を表す。
type MetricTier string

const (
	// TierBasic は初期表示される基本メトリクス。
	TierBasic MetricTier = "basic"
	// TierExtended は「拡張メトリクス」を有効にした場合のみ表示される。
	TierExtended MetricTier = "extended"
)

// MetricCategory はメトリクスのカテゴリ。
type MetricCategory string

const (
	CategoryAll          MetricCategory = "all"
	CategoryHealth       MetricCategory = "health"
	CategoryProductivity MetricCategory = "productivity"
	CategoryMood         MetricCategory = "mood"
	CategoryCreativity   MetricCategory = "creativity"
	CategorySocial       MetricCategory = "social"
)

// TrackedMetric は記録対象として選択できるメトリクスの定義。
// 静的カタログであり、ユーザーごとに保持するのは選択されたIDの集合のみ。
type TrackedMetric struct {
	ID          string
	Name        string
	Icon        string
	Category    MetricCategory
	Tier        MetricTier
	Description string
	Color       string
}

// OnboardingState はユーザーごとのオンボーディング状態を表す。
type OnboardingState struct {
	Completed         bool     `json:"onboarding_completed"`
	SelectedMetricIDs []string `json:"metrics"`
}
