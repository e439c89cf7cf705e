package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// KeyKind is the TOML type of a config key.
type KeyKind int

const (
	KindString KeyKind = iota
	KindDuration
	KindInt
	KindBool
)

// Keys lists every key that may appear in the config file.
var Keys = map[string]KeyKind{
	KeySheetURL:       KindString,
	KeySheetBaseURL:   KindString,
	KeyWebhookURL:     KindString,
	KeyWebhookTimeout: KindDuration,
	KeyHTTPTimeout:    KindDuration,
	KeyDBPath:         KindString,
	KeyLogFile:        KindString,
	KeyLogVerbose:     KindBool,
	KeyAIAPIKey:       KindString,
	KeyAIModel:        KindString,
	KeyAIMaxTokens:    KindInt,
	KeyDashboardPort:  KindInt,
}

// SortedKeys returns Keys in lexical order.
func SortedKeys() []string {
	out := make([]string, 0, len(Keys))
	for k := range Keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

const starterTemplate = `# dsadash configuration
# Every key can also be set as an environment variable, e.g.
# DSA_SHEET_URL or DSA_WEBHOOK_URL. ANTHROPIC_API_KEY works for ai.api_key.

[sheet]
# url = "https://docs.google.com/spreadsheets/d/<id>/edit"

[webhook]
# url = "https://script.google.com/macros/s/<deployment>/exec"
timeout = "10s"

[http]
timeout = "15s"

[ai]
# api_key = ""
model = %q
max_tokens = %d

[dashboard]
port = %d

[log]
# file = "%s"
verbose = false
`

// WriteStarter writes a commented starter file to path. An existing file is
// kept unless force is set.
func WriteStarter(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists", path)
	}

	d := DefaultConfig()
	body := fmt.Sprintf(starterTemplate, d.AIModel, d.AIMaxTokens, d.DashboardPort,
		filepath.Join(DefaultDir(), "dsadash.log"))

	// The template must stay valid TOML.
	var probe map[string]any
	if _, err := toml.Decode(body, &probe); err != nil {
		return fmt.Errorf("starter template is invalid: %w", err)
	}

	return writeFile(path, []byte(body))
}

// ReadFile decodes the TOML file at path. A missing file yields an empty map.
func ReadFile(path string) (map[string]any, error) {
	m := map[string]any{}
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return m, nil
}

// SetKey writes key = value into the file at path, converting value to the
// key's kind. Comments in the file are not preserved.
func SetKey(path, key, value string) error {
	kind, ok := Keys[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	typed, err := convert(kind, value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	switch key {
	case KeySheetURL:
		if err := ValidateSheetURL(value); err != nil {
			return err
		}
	case KeyWebhookURL:
		if err := ValidateWebhookURL(value); err != nil {
			return err
		}
	}

	m, err := ReadFile(path)
	if err != nil {
		return err
	}

	section, name := splitKey(key)
	table, _ := m[section].(map[string]any)
	if table == nil {
		table = map[string]any{}
		m[section] = table
	}
	table[name] = typed

	return encodeFile(path, m)
}

// UnsetKey removes key from the file at path. Removing an absent key is not
// an error.
func UnsetKey(path, key string) error {
	if _, ok := Keys[key]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}

	m, err := ReadFile(path)
	if err != nil {
		return err
	}

	section, name := splitKey(key)
	if table, ok := m[section].(map[string]any); ok {
		delete(table, name)
		if len(table) == 0 {
			delete(m, section)
		}
	}

	return encodeFile(path, m)
}

func splitKey(key string) (section, name string) {
	section, name, _ = strings.Cut(key, ".")
	return section, name
}

func convert(kind KeyKind, value string) (any, error) {
	switch kind {
	case KindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	case KindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		return int64(n), nil
	case KindBool:
		return strconv.ParseBool(value)
	default:
		return value, nil
	}
}

func encodeFile(path string, m map[string]any) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}
