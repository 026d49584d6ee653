package localization

import (
	"crop-dashboard/internal/models"
)

// Overlay maps canonical English text to its translation, per language.
type Overlay map[models.LanguageCode]map[string]string

// Resolver turns English display text into the viewer's language.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	base     models.LanguageCode
	overlays Overlay
	guide    GuideTable
}

// New builds a Resolver. The overlay maps are copied.
func New(base models.LanguageCode, overlays Overlay, guide GuideTable) *Resolver {
	if base == "" {
		base = models.LangEnglish
	}
	copied := make(Overlay, len(overlays))
	for lang, entries := range overlays {
		m := make(map[string]string, len(entries))
		for k, v := range entries {
			m[k] = v
		}
		copied[lang] = m
	}
	return &Resolver{base: base, overlays: copied, guide: guide}
}

// Base returns the language whose text is used as overlay keys.
func (r *Resolver) Base() models.LanguageCode {
	return r.base
}

// Resolve returns the translation of text in lang, or text itself when the
// language is the base language or the overlay has no entry. An empty
// translation counts as a miss.
func (r *Resolver) Resolve(text string, lang models.LanguageCode) string {
	if r == nil || lang == r.base || lang == "" {
		return text
	}
	if t, ok := r.overlays[lang][text]; ok && t != "" {
		return t
	}
	return text
}

// ResolveAll resolves every entry into a new slice.
func (r *Resolver) ResolveAll(texts []string, lang models.LanguageCode) []string {
	if texts == nil {
		return nil
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = r.Resolve(t, lang)
	}
	return out
}

// Supports reports whether lang is the base language or has an overlay.
func (r *Resolver) Supports(lang models.LanguageCode) bool {
	if lang == r.base {
		return true
	}
	_, ok := r.overlays[lang]
	return ok
}

// GuideHeading returns the static heading for a guide section item.
// item may be models.GuideSectionTitle for the section title.
func (r *Resolver) GuideHeading(section models.GuideSectionKey, item models.GuideItemKey, lang models.LanguageCode) string {
	if r == nil {
		return string(item)
	}
	return r.guide.Lookup(section, item, lang, r.base)
}

// LocalizeGuide renders every guide section in canonical order, with
// headings from the guide table and bullet items through the overlay.
// Missing sections render with empty lists.
func (r *Resolver) LocalizeGuide(guide models.FarmerGuide, lang models.LanguageCode) []models.LocalizedGuideSection {
	sections := make([]models.LocalizedGuideSection, 0, len(models.GuideSections))
	for _, key := range models.GuideSections {
		src := guide.Section(key)
		sec := models.LocalizedGuideSection{
			Key:   key,
			Title: r.GuideHeading(key, models.GuideSectionTitle, lang),
			Lists: make([]models.LocalizedGuideList, 0, len(models.GuideItems)),
		}
		for _, item := range models.GuideItems {
			items := r.ResolveAll(src.Items(item), lang)
			if items == nil {
				items = []string{}
			}
			sec.Lists = append(sec.Lists, models.LocalizedGuideList{
				Key:     item,
				Heading: r.GuideHeading(key, item, lang),
				Items:   items,
			})
		}
		sections = append(sections, sec)
	}
	return sections
}
