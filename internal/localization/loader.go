package localization

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"crop-dashboard/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

const guideFile = "guide.yaml"

// Logger is the subset of logger.Logger the loader needs.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

// Load builds a Resolver from the embedded overlays. When overlayDir is
// set, every <lang>.yaml found there replaces the embedded overlay for
// that language, and a guide.yaml there replaces the embedded guide table.
func Load(base models.LanguageCode, overlayDir string, log Logger) (*Resolver, error) {
	dataFS, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded overlays: %w", err)
	}

	overlays, guide, err := readDir(dataFS)
	if err != nil {
		return nil, fmt.Errorf("read embedded overlays: %w", err)
	}

	if overlayDir != "" {
		extra, extraGuide, err := readDir(os.DirFS(overlayDir))
		if err != nil {
			return nil, fmt.Errorf("read overlay dir %s: %w", overlayDir, err)
		}
		for lang, entries := range extra {
			overlays[lang] = entries
		}
		if extraGuide != nil {
			guide = extraGuide
		}
		if log != nil {
			log.Info("loaded overlay directory", map[string]interface{}{
				"dir":       overlayDir,
				"languages": len(extra),
				"guide":     extraGuide != nil,
			})
		}
	}

	if _, ok := overlays[base]; ok && log != nil {
		log.Warn("overlay for base language is ignored", map[string]interface{}{"language": base})
	}

	return New(base, overlays, guide), nil
}

// MustLoadDefault returns a Resolver over the embedded overlays only.
func MustLoadDefault() *Resolver {
	r, err := Load(models.LangEnglish, "", nil)
	if err != nil {
		panic(err)
	}
	return r
}

func readDir(fsys fs.FS) (Overlay, GuideTable, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, nil, err
	}

	overlays := make(Overlay)
	var guide GuideTable
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".yaml" {
			continue
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, nil, err
		}

		if name == guideFile {
			guide, err = ParseGuide(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", name, err)
			}
			continue
		}

		table, err := ParseOverlay(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		overlays[models.LanguageCode(strings.TrimSuffix(name, ".yaml"))] = table
	}
	return overlays, guide, nil
}

// ParseOverlay decodes a flat "english: translation" YAML mapping.
func ParseOverlay(raw []byte) (map[string]string, error) {
	out := map[string]string{}
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseGuide decodes a section -> item -> language YAML mapping.
func ParseGuide(raw []byte) (GuideTable, error) {
	var out GuideTable
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = GuideTable{}
	}
	return out, nil
}
