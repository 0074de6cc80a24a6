package mood

// Color はモザイクのセルに表示する色とラベル。
type Color struct {
	Threshold  int
	Background string
	Label      string
}

// colorTable はしきい値の昇順に並んだ色テーブル。
var colorTable = []Color{
	{Threshold: 1, Background: "#ef4444", Label: "つらい"},
	{Threshold: 2, Background: "#f97316", Label: "悲しい"},
	{Threshold: 3, Background: "#fbbf24", Label: "ふつう"},
	{Threshold: 4, Background: "#84cc16", Label: "良い"},
	{Threshold: 5, Background: "#22c55e", Label: "最高"},
}

// ColorFor はスコア以上のしきい値を持つ最初のエントリを返す。
// 該当がない場合（スコアが5を超える場合）は最後のエントリ（最高）を返す。
// 範囲外の小さいスコアは最初のしきい値に一致するため最悪の色になる。
func ColorFor(score int) Color {
	for _, c := range colorTable {
		if score <= c.Threshold {
			return c
		}
	}
	return colorTable[len(colorTable)-1]
}

// EmptyCellBackground は記録のない日のセル背景色。
const EmptyCellBackground = "hsl(240 5% 96% / 0.3)"
