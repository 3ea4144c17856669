package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// ScanConfig lists what the auto-scan worker visits each cycle.
type ScanConfig struct {
	Categories []string `yaml:"categories"`
	Languages  []string `yaml:"languages"`
	Limit      int      `yaml:"limit"`
}

// DefaultScanConfig mirrors the categories the worker has always scanned.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Categories: []string{domain.CategoryTech, domain.CategoryBusiness, domain.CategoryDance, domain.CategoryComedy, domain.CategoryLifestyle},
		Languages:  []string{string(domain.LanguageEN)},
		Limit:      6,
	}
}

// LoadScanConfig reads a YAML scan plan. An empty path yields the defaults.
func LoadScanConfig(path string) (ScanConfig, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultScanConfig(), nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ScanConfig{}, fmt.Errorf("op=config.LoadScanConfig: %w", err)
	}
	// #nosec G304 -- operator-supplied configuration path
	content, err := os.ReadFile(absPath)
	if err != nil {
		return ScanConfig{}, fmt.Errorf("op=config.LoadScanConfig: read %s: %w", absPath, err)
	}
	var sc ScanConfig
	if err := yaml.Unmarshal(content, &sc); err != nil {
		return ScanConfig{}, fmt.Errorf("op=config.LoadScanConfig: failed to parse YAML: %w", err)
	}
	return sc.normalize(), nil
}

// LanguageList returns the parsed, de-duplicated scan languages.
func (sc ScanConfig) LanguageList() []domain.Language {
	seen := map[domain.Language]bool{}
	out := make([]domain.Language, 0, len(sc.Languages))
	for _, l := range sc.Languages {
		lang := domain.ParseLanguage(l)
		if seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	if len(out) == 0 {
		out = append(out, domain.LanguageEN)
	}
	return out
}

func (sc ScanConfig) normalize() ScanConfig {
	def := DefaultScanConfig()
	cats := make([]string, 0, len(sc.Categories))
	for _, c := range sc.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	if len(cats) == 0 {
		cats = def.Categories
	}
	sc.Categories = cats
	if len(sc.Languages) == 0 {
		sc.Languages = def.Languages
	}
	if sc.Limit <= 0 {
		sc.Limit = def.Limit
	}
	return sc
}
