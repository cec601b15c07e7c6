package settings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rickchristie/infill"
)

// Setting keys, as they appear in the settings file.
const (
	KeyAPIKey         = "openaiApiKey"
	KeyBaseURL        = "customURL"
	KeyModel          = "model"
	KeyTriggerPattern = "triggerRegex"
	KeyWindowSize     = "windowSize"
	KeyDebounceMs     = "debounceMs"
	KeySystemPrompt   = "systemPrompt"
	KeyTriggerScope   = "triggerScope"
)

// Keys returns every settable key in file order.
func Keys() []string {
	return []string{
		KeyAPIKey,
		KeyBaseURL,
		KeyModel,
		KeyTriggerPattern,
		KeyWindowSize,
		KeyDebounceMs,
		KeySystemPrompt,
		KeyTriggerScope,
	}
}

// Get returns the value of key as text. Keys match case-insensitively.
func Get(s infill.Settings, key string) (string, error) {
	switch canonical(key) {
	case KeyAPIKey:
		return s.APIKey, nil
	case KeyBaseURL:
		return s.BaseURL, nil
	case KeyModel:
		return s.Model, nil
	case KeyTriggerPattern:
		return s.TriggerPattern, nil
	case KeyWindowSize:
		return strconv.Itoa(s.WindowSize), nil
	case KeyDebounceMs:
		return strconv.Itoa(s.DebounceMs), nil
	case KeySystemPrompt:
		return s.SystemPrompt, nil
	case KeyTriggerScope:
		return string(s.TriggerScope), nil
	default:
		return "", unknownKey(key)
	}
}

// Set parses value and assigns it to key. It does not validate the result;
// Store.Save does.
func Set(s *infill.Settings, key, value string) error {
	switch canonical(key) {
	case KeyAPIKey:
		s.APIKey = value
	case KeyBaseURL:
		s.BaseURL = value
	case KeyModel:
		s.Model = value
	case KeyTriggerPattern:
		s.TriggerPattern = value
	case KeyWindowSize:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %v", infill.ErrInvalidSettings, KeyWindowSize, err)
		}
		s.WindowSize = n
	case KeyDebounceMs:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %v", infill.ErrInvalidSettings, KeyDebounceMs, err)
		}
		s.DebounceMs = n
	case KeySystemPrompt:
		s.SystemPrompt = value
	case KeyTriggerScope:
		s.TriggerScope = infill.TriggerScope(value)
	default:
		return unknownKey(key)
	}
	return nil
}

// Redact hides all but the last four characters of a credential.
func Redact(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

func canonical(key string) string {
	for _, k := range Keys() {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}

func unknownKey(key string) error {
	return fmt.Errorf("%w: unknown key %q (known: %s)", infill.ErrInvalidSettings, key, strings.Join(Keys(), ", "))
}
