package localization

import (
	"os"
	"path/filepath"
	"testing"

	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestResolver() *Resolver {
	return New(models.LangEnglish, Overlay{
		models.LangHindi: {
			"Soil Quality": "मिट्टी की गुणवत्ता",
			"Blank":        "",
		},
	}, GuideTable{
		models.GuideSoil: {
			models.GuideSectionTitle: {models.LangEnglish: "Soil Management", models.LangHindi: "मिट्टी प्रबंधन"},
			models.GuideWhatToDo:     {models.LangEnglish: "What to Do"},
		},
	})
}

// ==========================
// Resolve
// ==========================

func TestResolve(t *testing.T) {
	r := createTestResolver()

	tests := []struct {
		name string
		text string
		lang models.LanguageCode
		want string
	}{
		{"base language returns input", "Soil Quality", models.LangEnglish, "Soil Quality"},
		{"overlay hit", "Soil Quality", models.LangHindi, "मिट्टी की गुणवत्ता"},
		{"overlay miss returns input", "Area Efficiency", models.LangHindi, "Area Efficiency"},
		{"empty translation is a miss", "Blank", models.LangHindi, "Blank"},
		{"language without overlay", "Soil Quality", models.LangMarathi, "Soil Quality"},
		{"unknown language", "Soil Quality", models.LanguageCode("fr"), "Soil Quality"},
		{"empty text", "", models.LangHindi, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.text, tt.lang))
		})
	}
}

func TestResolve_NeverBlank(t *testing.T) {
	r := MustLoadDefault()
	for _, lang := range []models.LanguageCode{models.LangEnglish, models.LangHindi, models.LangMarathi, "xx"} {
		for _, text := range []string{"Predicted Production", "Use drip irrigation to conserve water", "unmapped"} {
			assert.NotEmpty(t, r.Resolve(text, lang), "%s/%s", lang, text)
		}
	}
}

func TestResolveAll_DoesNotMutateInput(t *testing.T) {
	r := createTestResolver()
	in := []string{"Soil Quality", "Other"}

	out := r.ResolveAll(in, models.LangHindi)

	assert.Equal(t, []string{"Soil Quality", "Other"}, in)
	assert.Equal(t, []string{"मिट्टी की गुणवत्ता", "Other"}, out)
	assert.Nil(t, r.ResolveAll(nil, models.LangHindi))
}

func TestNew_CopiesOverlays(t *testing.T) {
	src := Overlay{models.LangHindi: {"a": "b"}}
	r := New("", src, nil)
	src[models.LangHindi]["a"] = "changed"

	assert.Equal(t, models.LangEnglish, r.Base())
	assert.Equal(t, "b", r.Resolve("a", models.LangHindi))
}

func TestNilResolver(t *testing.T) {
	var r *Resolver
	assert.Equal(t, "x", r.Resolve("x", models.LangHindi))
	assert.Equal(t, "title", r.GuideHeading(models.GuideSoil, models.GuideSectionTitle, models.LangHindi))
}

// ==========================
// Guide table
// ==========================

func TestGuideHeading_Fallbacks(t *testing.T) {
	r := createTestResolver()

	assert.Equal(t, "मिट्टी प्रबंधन", r.GuideHeading(models.GuideSoil, models.GuideSectionTitle, models.LangHindi))
	assert.Equal(t, "What to Do", r.GuideHeading(models.GuideSoil, models.GuideWhatToDo, models.LangHindi))
	assert.Equal(t, "challenges", r.GuideHeading(models.GuideSoil, models.GuideChallenges, models.LangHindi))
	assert.Equal(t, "title", r.GuideHeading(models.GuideMarket, models.GuideSectionTitle, models.LangEnglish))
}

func TestLocalizeGuide(t *testing.T) {
	r := MustLoadDefault()
	guide := models.FarmerGuide{
		models.GuideWater: {WhatToDo: []string{"Use drip irrigation to conserve water", "Check canals"}},
	}

	sections := r.LocalizeGuide(guide, models.LangMarathi)

	require.Len(t, sections, len(models.GuideSections))
	assert.Equal(t, models.GuideSoil, sections[0].Key)
	assert.Equal(t, "माती व्यवस्थापन", sections[0].Title)
	for _, list := range sections[0].Lists {
		assert.NotNil(t, list.Items)
		assert.Empty(t, list.Items)
	}

	water := sections[1]
	assert.Equal(t, models.GuideWater, water.Key)
	assert.Equal(t, "काय करावे", water.Lists[0].Heading)
	assert.Equal(t, []string{"पाणी वाचवण्यासाठी ठिबक सिंचनाचा वापर करा", "Check canals"}, water.Lists[0].Items)

	// input untouched
	assert.Equal(t, "Use drip irrigation to conserve water", guide[models.GuideWater].WhatToDo[0])
}

// ==========================
// Loader
// ==========================

func TestLoad_Embedded(t *testing.T) {
	r, err := Load(models.LangEnglish, "", nil)
	require.NoError(t, err)

	assert.True(t, r.Supports(models.LangHindi))
	assert.True(t, r.Supports(models.LangMarathi))
	assert.True(t, r.Supports(models.LangEnglish))
	assert.False(t, r.Supports("fr"))

	assert.Equal(t, "अनुमानित उत्पादन", r.Resolve("Predicted Production", models.LangHindi))
	assert.Equal(t, "अंदाजित उत्पादन", r.Resolve("Predicted Production", models.LangMarathi))
	assert.Equal(t, "Market Guidance", r.GuideHeading(models.GuideMarket, models.GuideSectionTitle, models.LangEnglish))
}

func TestLoad_OverlayDirReplacesLanguage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hi.yaml"), []byte(`"Soil Quality": "override"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ta.yaml"), []byte(`"Soil Quality": "மண் தரம்"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r, err := Load(models.LangEnglish, dir, logger.NewTestLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "override", r.Resolve("Soil Quality", models.LangHindi))
	// replaced wholesale, not merged
	assert.Equal(t, "Predicted Production", r.Resolve("Predicted Production", models.LangHindi))
	assert.Equal(t, "மண் தரம்", r.Resolve("Soil Quality", "ta"))
	assert.Equal(t, "मातीची गुणवत्ता", r.Resolve("Soil Quality", models.LangMarathi))
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hi.yaml"), []byte("- not\n- a map"), 0o644))

	_, err := Load(models.LangEnglish, dir, nil)
	assert.ErrorContains(t, err, "hi.yaml")
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := Load(models.LangEnglish, filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
