// Package locale holds the user-facing texts in every supported language.
//
// The built-in catalog is embedded from messages.yaml. An optional override
// file with the same shape can replace individual texts; it is validated
// against a JSON schema before being merged and can be hot-reloaded.
package locale

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Supported languages.
const (
	Uzbek   = "uz"
	Russian = "ru"
	English = "en"

	// DefaultLanguage is used when a session has no language yet.
	DefaultLanguage = Uzbek
)

// Welcome is shown before a language is known, so it carries all three.
const Welcome = "👋 Assalomu aleykum! / Здравствуйте! / Hello!\n\n🌐 Tilni tanlang / Выберите язык / Choose language:"

//go:embed messages.yaml
var builtin []byte

var flags = map[string]string{
	Uzbek:   "🇺🇿",
	Russian: "🇷🇺",
	English: "🇬🇧",
}

// overrideSchema constrains override files: language code -> key -> text.
var overrideSchema = map[string]interface{}{
	"type": "object",
	"patternProperties": map[string]interface{}{
		"^[a-z]{2}$": map[string]interface{}{
			"type": "object",
			"additionalProperties": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
		},
	},
	"additionalProperties": false,
}

// Catalog is a concurrency-safe set of localized texts.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
	override string
}

// New returns the built-in catalog, merged with the override file when
// overridePath is non-empty and exists.
func New(overridePath string) (*Catalog, error) {
	c := &Catalog{override: overridePath}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustDefault returns the built-in catalog. It panics if the embedded file is broken.
func MustDefault() *Catalog {
	c, err := New("")
	if err != nil {
		panic(err)
	}
	return c
}

// Reload rebuilds the catalog from the embedded texts and the override file.
// On error the current texts are left untouched.
func (c *Catalog) Reload() error {
	base, err := parse(builtin)
	if err != nil {
		return fmt.Errorf("parse built-in messages: %w", err)
	}

	if c.override != "" {
		data, err := os.ReadFile(c.override)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return fmt.Errorf("read locale override: %w", err)
		default:
			extra, err := parseOverride(data)
			if err != nil {
				return fmt.Errorf("locale override %s: %w", c.override, err)
			}
			merge(base, extra)
		}
	}

	c.mu.Lock()
	c.messages = base
	c.mu.Unlock()
	return nil
}

// OverridePath returns the override file this catalog merges, if any.
func (c *Catalog) OverridePath() string {
	return c.override
}

// T returns the text for key in lang, formatted with args when given.
// Missing texts fall back to the default language and then to the key itself.
func (c *Catalog) T(lang, key string, args ...interface{}) string {
	c.mu.RLock()
	text, ok := c.messages[lang][key]
	if !ok {
		text, ok = c.messages[DefaultLanguage][key]
	}
	c.mu.RUnlock()
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// Labels returns the distinct texts of key across all languages.
func (c *Catalog) Labels(key string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var labels []string
	for _, lang := range c.languagesLocked() {
		if text, ok := c.messages[lang][key]; ok && !seen[text] {
			seen[text] = true
			labels = append(labels, text)
		}
	}
	return labels
}

// Matches reports whether text equals key's label in any language.
func (c *Catalog) Matches(key, text string) bool {
	text = strings.TrimSpace(text)
	for _, label := range c.Labels(key) {
		if label == text {
			return true
		}
	}
	return false
}

// Languages returns the language codes present in the catalog, sorted.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.languagesLocked()
}

func (c *Catalog) languagesLocked() []string {
	langs := make([]string, 0, len(c.messages))
	for lang := range c.messages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// SystemPrompt returns the assistant instructions for lang.
func (c *Catalog) SystemPrompt(lang string) string {
	return c.T(lang, "ai.system")
}

// LanguageFromText detects a language choice by its flag emoji.
func LanguageFromText(text string) (string, bool) {
	for _, lang := range []string{Uzbek, Russian, English} {
		if strings.Contains(text, flags[lang]) {
			return lang, true
		}
	}
	return "", false
}

// Supported reports whether lang is one of the bot's languages.
func Supported(lang string) bool {
	_, ok := flags[lang]
	return ok
}

func parse(data []byte) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseOverride(data []byte) (map[string]map[string]string, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return map[string]map[string]string{}, nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(overrideSchema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("invalid override: %s", strings.Join(problems, "; "))
	}

	return parse(data)
}

func merge(dst, src map[string]map[string]string) {
	for lang, texts := range src {
		if dst[lang] == nil {
			dst[lang] = make(map[string]string, len(texts))
		}
		for key, text := range texts {
			dst[lang][key] = text
		}
	}
}
