// Package usecase はassistantフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"foodshare_backend/internal/feature/assistant/domain/entity"
	"foodshare_backend/internal/shared/apperr"
)

const (
	// MaxMessageLength は質問の最大文字数（rune数）です。
	MaxMessageLength = 1000
	// DefaultTimeout は生成AI呼び出しのデフォルトタイムアウトです。
	DefaultTimeout = 30 * time.Second
)

// promptTemplates は言語ごとのプロンプトテンプレートです。
var promptTemplates = map[entity.Language]string{
	entity.LanguageEnglish: "Please give a structured response related to food waste, reuse, donation, or its environmental impact: %s",
	entity.LanguageHindi:   "कृपया भोजन अपशिष्ट प्रबंधन, पुन: उपयोग, दान या पर्यावरण पर इसके प्रभाव के बारे में संरचित उत्तर दें: %s",
}

// markupStripper は回答からMarkdownの見出し・強調記号を除去します。
var markupStripper = strings.NewReplacer("#", "", "*", "")

// Generator はプロンプトからテキストを生成するインターフェースです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AssistantUsecase は食品ロスに関する質問を生成AIに転送します。
type AssistantUsecase struct {
	gen     Generator
	timeout time.Duration
}

// NewAssistantUsecase はAssistantUsecaseの新しいインスタンスを生成します。
// gen がnilの場合、Askは常にUpstreamエラーを返します。
func NewAssistantUsecase(gen Generator, timeout time.Duration) *AssistantUsecase {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AssistantUsecase{gen: gen, timeout: timeout}
}

// Ask は質問を検証し、言語に応じたプロンプトで回答を生成します。
func (u *AssistantUsecase) Ask(ctx context.Context, message, language string) (*entity.Answer, error) {
	message = strings.TrimSpace(message)
	fields := map[string]string{}
	if message == "" {
		fields["message"] = "is required"
	} else if utf8.RuneCountInString(message) > MaxMessageLength {
		fields["message"] = fmt.Sprintf("must be at most %d characters", MaxMessageLength)
	}
	lang, ok := entity.ParseLanguage(language)
	if !ok {
		fields["language"] = "must be one of: en hi"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid chat message", fields)
	}

	if u.gen == nil {
		return nil, apperr.Upstream("assistant is not configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	text, err := u.gen.Generate(ctx, fmt.Sprintf(promptTemplates[lang], message))
	if err != nil {
		return nil, apperr.Upstream("assistant is unavailable", err)
	}

	return &entity.Answer{
		Question: message,
		Language: lang,
		Text:     strings.TrimSpace(markupStripper.Replace(text)),
	}, nil
}
