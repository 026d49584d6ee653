package models

// LanguageCode identifies a display language.
type LanguageCode string

const (
	LangEnglish LanguageCode = "en"
	LangHindi   LanguageCode = "hi"
	LangMarathi LanguageCode = "mr"
)

// SupportedLanguages lists the languages with shipped overlays.
var SupportedLanguages = []LanguageCode{LangEnglish, LangHindi, LangMarathi}
