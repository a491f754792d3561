package i18n

import (
	"strings"
	"sync/atomic"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "key").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_type":
			msg = "型が不正です"
		case "required":
			msg = "必須プロパティが不足しています"
		case "unknown_key":
			msg = "未知のキーです"
		case "invalid_enum":
			msg = "許可されていない値です"
		case "invalid_format":
			msg = "形式が不正です"
		case "too_small":
			msg = "小さすぎます"
		case "too_big":
			msg = "大きすぎます"
		case "too_short":
			msg = "短すぎます"
		case "too_long":
			msg = "長すぎます"
		case "pattern":
			msg = "パターンに一致しません"
		case "no_match":
			msg = "どの候補にも一致しません"
		case "union_ambiguous":
			msg = "複数の候補に一致します"
		case "unresolved_ref":
			msg = "参照先のスキーマが見つかりません"
		}
	default: // "en"
		switch code {
		case "invalid_type":
			msg = "invalid type"
		case "required":
			msg = "required property missing"
		case "unknown_key":
			msg = "unknown key"
		case "invalid_enum":
			msg = "value not in enum"
		case "invalid_format":
			msg = "invalid format"
		case "too_small":
			msg = "too small"
		case "too_big":
			msg = "too big"
		case "too_short":
			msg = "too short"
		case "too_long":
			msg = "too long"
		case "pattern":
			msg = "does not match pattern"
		case "no_match":
			msg = "matches no schema branch"
		case "union_ambiguous":
			msg = "matches more than one schema branch"
		case "unresolved_ref":
			msg = "unresolved schema reference"
		}
	}
	if msg == "" {
		return code
	}
	return msg + details(code, data)
}

// details appends the single most useful parameter for the code.
func details(code string, data map[string]string) string {
	var key string
	switch code {
	case "invalid_type":
		key = "expected"
	case "required":
		key = "property"
	case "unknown_key":
		key = "key"
	case "invalid_format":
		key = "format"
	case "pattern":
		key = "pattern"
	case "unresolved_ref":
		key = "ref"
	default:
		return ""
	}
	v := strings.TrimSpace(data[key])
	if v == "" {
		return ""
	}
	return " (" + key + ": " + v + ")"
}

type holder struct{ tr Translator }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{tr: dictTranslator{lang: "en"}}) }

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	current.Store(&holder{tr: dictTranslator{lang: lang}})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	current.Store(&holder{tr: tr})
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return current.Load().tr.Message(code, data) }
