package i18n

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	nested := map[string]interface{}{
		"notifications": map[string]interface{}{
			"hearing": map[string]interface{}{
				"suspended": map[string]interface{}{
					"title": "Hearing suspended",
				},
			},
		},
		"count": 123,
	}

	flat := make(map[string]string)
	flatten("", nested, flat)

	assert.Equal(t, "Hearing suspended", flat["notifications.hearing.suspended.title"])
	assert.Equal(t, "123", flat["count"])
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		args     map[string]interface{}
		expected string
	}{
		{
			name:     "No placeholders",
			text:     "Proceso archivado",
			args:     nil,
			expected: "Proceso archivado",
		},
		{
			name:     "Single placeholder",
			text:     "Proceso {case_reference}",
			args:     map[string]interface{}{"case_reference": "J01-2026-00001"},
			expected: "Proceso J01-2026-00001",
		},
		{
			name:     "Multiple placeholders",
			text:     "{attempts} intentos en {case_reference}",
			args:     map[string]interface{}{"attempts": 3, "case_reference": "J01-2026-00001"},
			expected: "3 intentos en J01-2026-00001",
		},
		{
			name:     "Missing argument",
			text:     "Vence el {expires_on}",
			args:     map[string]interface{}{"other": "val"},
			expected: "Vence el {expires_on}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, format(tt.text, tt.args))
		})
	}
}

func TestTranslateLogic(t *testing.T) {
	require.NoError(t, Load())

	mutex.Lock()
	oldTrans := translations
	translations = map[string]map[string]string{
		"es": {
			"test.hello":   "Hola",
			"test.welcome": "Bienvenido {name}",
		},
		"en": {
			"test.hello": "Hello",
		},
	}
	mutex.Unlock()

	defer func() {
		mutex.Lock()
		translations = oldTrans
		mutex.Unlock()
	}()

	t.Run("Direct lookup", func(t *testing.T) {
		assert.Equal(t, "Hola", Translate("es", "test.hello", nil))
		assert.Equal(t, "Hello", Translate("en", "test.hello", nil))
	})

	t.Run("Fallback to default", func(t *testing.T) {
		assert.Equal(t, "Bienvenido Juan", Translate("en", "test.welcome", map[string]interface{}{"name": "Juan"}))
	})

	t.Run("Empty language uses default", func(t *testing.T) {
		assert.Equal(t, "Hola", Translate("", "test.hello", nil))
	})

	t.Run("Fallback to key", func(t *testing.T) {
		assert.Equal(t, "missing.key", Translate("es", "missing.key", nil))
	})
}

func TestCataloguesAreComplete(t *testing.T) {
	require.NoError(t, Load())
	assert.Equal(t, []string{"en", "es"}, Languages())

	mutex.RLock()
	defer mutex.RUnlock()

	es, en := translations["es"], translations["en"]
	require.NotEmpty(t, es)
	for key := range es {
		assert.Contains(t, en, key, "en catalogue is missing %s", key)
	}
	for key := range en {
		assert.Contains(t, es, key, "es catalogue is missing %s", key)
	}
	for key, val := range es {
		assert.False(t, strings.TrimSpace(val) == "", "empty translation for %s", key)
	}
}

func TestHas(t *testing.T) {
	assert.True(t, Has("notifications.transition.admit.title"))
	assert.False(t, Has("notifications.transition.unknown.title"))
}
