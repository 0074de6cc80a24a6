package security

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNoteSanitizer_Sanitize(t *testing.T) {
	s := NewNoteSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"空文字列", "", ""},
		{"プレーンテキスト", "今日は散歩した", "今日は散歩した"},
		{"前後の空白", "  晴れ  \n", "晴れ"},
		{"比較記号と&", "1 < 2 & 3 > 2", "1 < 2 & 3 > 2"},
		{"引用符", `"良い" 'day'`, `"良い" 'day'`},
		{"タグ除去", "<b>太字</b>と<i>斜体</i>", "太字と斜体"},
		{"scriptは中身ごと除去", "前<script>alert('x')</script>後", "前後"},
		{"イベント属性", `<img src="x" onerror="alert(1)">写真`, "写真"},
		{"リンク", `<a href="javascript:alert(1)">リンク</a>`, "リンク"},
		{"絵文字", "最高の一日 🎉", "最高の一日 🎉"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNoteSanitizer_Idempotent(t *testing.T) {
	s := NewNoteSanitizer()
	inputs := []string{"<p>段落</p>", "a &amp; b", "<em>強調</em>した", "普通のメモ"}

	for _, in := range inputs {
		once := s.Sanitize(in)
		if twice := s.Sanitize(once); once != twice {
			t.Errorf("Sanitize not stable for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestNoteSanitizer_TruncatesLongNotes(t *testing.T) {
	s := NewNoteSanitizer()
	long := strings.Repeat("あ", MaxNoteRunes+50)

	got := s.Sanitize(long)
	if n := utf8.RuneCountInString(got); n != MaxNoteRunes {
		t.Errorf("rune count = %d, want %d", n, MaxNoteRunes)
	}
	if !utf8.ValidString(got) {
		t.Error("result should be valid UTF-8")
	}
}

func TestNoteSanitizer_InvalidUTF8(t *testing.T) {
	s := NewNoteSanitizer()
	got := s.Sanitize("ok\xffok")
	if !utf8.ValidString(got) {
		t.Errorf("Sanitize returned invalid UTF-8: %q", got)
	}
}
