// Package entity はassistantフィーチャーのドメインモデルを定義します。
package entity

import "strings"

// Language は回答言語です。
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

// ParseLanguage は "en" / "hi" およびブラウザのロケール表記（"en-US", "hi-IN"）を受け付けます。
// 空文字は英語として扱います。
func ParseLanguage(s string) (Language, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	switch Language(s) {
	case "", LanguageEnglish:
		return LanguageEnglish, true
	case LanguageHindi:
		return LanguageHindi, true
	}
	return "", false
}

// Answer はアシスタントの回答です。
type Answer struct {
	Question string   // 利用者の質問
	Language Language // 回答言語
	Text     string   // 記号を除去した回答本文
}
