package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxNoteRunes は日記メモとして保存する最大文字数。
const MaxNoteRunes = 1000

// NoteSanitizer は日記メモからマークアップを取り除き、プレーンテキストとして保存できる形にする。
// メモはテンプレート描画時にエスケープされるため、ここではHTMLエンティティを元の文字に戻す。
type NoteSanitizer struct {
	policy *bluemonday.Policy
}

// NewNoteSanitizer はNoteSanitizerを生成する。
// bluemondayのStrictPolicyにより、すべてのタグと属性を除去する。
func NewNoteSanitizer() *NoteSanitizer {
	return &NoteSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はメモからタグを除去し、前後の空白を取り除いてMaxNoteRunes文字に切り詰める。
// 同一入力に対して常に同一出力を返す。
func (s *NoteSanitizer) Sanitize(note string) string {
	if note == "" {
		return ""
	}

	cleaned := html.UnescapeString(s.policy.Sanitize(note))
	cleaned = strings.ToValidUTF8(strings.TrimSpace(cleaned), "")

	if utf8.RuneCountInString(cleaned) > MaxNoteRunes {
		cleaned = string([]rune(cleaned)[:MaxNoteRunes])
	}
	return cleaned
}
