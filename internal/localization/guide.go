package localization

import (
	"crop-dashboard/internal/models"
)

// GuideTable holds the farmer-guide headings keyed by section, item and language.
type GuideTable map[models.GuideSectionKey]map[models.GuideItemKey]map[models.LanguageCode]string

// Lookup tries lang, then base, then falls back to the item key.
func (g GuideTable) Lookup(section models.GuideSectionKey, item models.GuideItemKey, lang, base models.LanguageCode) string {
	byLang := g[section][item]
	if s := byLang[lang]; s != "" {
		return s
	}
	if s := byLang[base]; s != "" {
		return s
	}
	return string(item)
}
