// Package i18n renders notification titles and messages from the embedded
// catalogues. Keys are dot-separated paths into the JSON documents.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var fs embed.FS

// DefaultLanguage is used when a recipient has no language or the key is missing in it
const DefaultLanguage = "es"

// translations stores flattened keys: "es" -> "notifications.hearing.suspended.title" -> "..."
var (
	translations = make(map[string]map[string]string)
	mutex        sync.RWMutex
	loadOnce     sync.Once
	loadErr      error
)

// Load reads every embedded catalogue. It is safe to call more than once.
func Load() error {
	loadOnce.Do(func() {
		loadErr = load()
	})
	return loadErr
}

func load() error {
	mutex.Lock()
	defer mutex.Unlock()

	entries, err := fs.ReadDir(".")
	if err != nil {
		return fmt.Errorf("failed to read embedded locales: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(entry.Name(), ".json")
		content, err := fs.ReadFile(entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", entry.Name(), err)
		}

		var result map[string]interface{}
		if err := json.Unmarshal(content, &result); err != nil {
			return fmt.Errorf("failed to unmarshal locale %s: %w", entry.Name(), err)
		}

		flat := make(map[string]string)
		flatten("", result, flat)
		translations[lang] = flat
		log.Printf("[I18N] Loaded locale: %s (%d keys)", lang, len(flat))
	}

	return nil
}

// flatten recursively flattens a nested map into dot-notation keys.
func flatten(prefix string, nested map[string]interface{}, result map[string]string) {
	for k, v := range nested {
		newKey := k
		if prefix != "" {
			newKey = prefix + "." + k
		}

		switch child := v.(type) {
		case map[string]interface{}:
			flatten(newKey, child, result)
		case string:
			result[newKey] = child
		default:
			result[newKey] = fmt.Sprintf("%v", child)
		}
	}
}

// Translate renders key in lang, falling back to DefaultLanguage and then to
// the key itself. Placeholders of the form {name} are replaced from params.
func Translate(lang, key string, params map[string]interface{}) string {
	if err := Load(); err != nil {
		log.Printf("[I18N] %v", err)
	}

	mutex.RLock()
	defer mutex.RUnlock()

	if lang == "" {
		lang = DefaultLanguage
	}
	if trans, ok := translations[lang]; ok {
		if val, ok := trans[key]; ok {
			return format(val, params)
		}
	}
	if lang != DefaultLanguage {
		if val, ok := translations[DefaultLanguage][key]; ok {
			return format(val, params)
		}
	}
	return key
}

// Has reports whether the default catalogue defines key
func Has(key string) bool {
	_ = Load()
	mutex.RLock()
	defer mutex.RUnlock()
	_, ok := translations[DefaultLanguage][key]
	return ok
}

// Languages lists the loaded catalogue codes
func Languages() []string {
	_ = Load()
	mutex.RLock()
	defer mutex.RUnlock()
	langs := make([]string, 0, len(translations))
	for l := range translations {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// format replaces {var} placeholders with values from params if present.
func format(text string, params map[string]interface{}) string {
	for k, v := range params {
		text = strings.ReplaceAll(text, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	return text
}
