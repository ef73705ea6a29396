package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/camnode/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "CAMNODE_"

// LoadConfig fills opts with precedence CLI flag > environment > TOML file.
// opts must be a pointer to a struct whose Config field names the file.
// Fields carry `toml:"section.key"` and `env:"KEY"` tags. Flags explicitly
// set on cmd are left alone. A missing file is not an error.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	changedFlags := make(map[string]bool)
	if cmd != nil {
		// Persistent flags are shared with subcommands, so a flag given to
		// a subcommand is marked changed here too.
		visit := func(f *pflag.Flag) {
			if f.Changed {
				changedFlags[f.Name] = true
			}
		}
		cmd.Flags().VisitAll(visit)
		cmd.PersistentFlags().VisitAll(visit)
	}

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}

	doc, err := readTOML(configPath)
	if err != nil {
		return err
	}

	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)
		if changedFlags[fieldNameToFlag(fieldType.Name)] {
			continue
		}

		if tomlPath := fieldType.Tag.Get("toml"); tomlPath != "" && doc != nil {
			if value := getNestedValue(doc, tomlPath); value != nil {
				setFieldValue(field, value)
			}
		}
		if envKey := fieldType.Tag.Get("env"); envKey != "" {
			if envValue, ok := os.LookupEnv(EnvPrefix + envKey); ok && envValue != "" {
				setFieldValueFromString(field, envValue)
			}
		}
	}
	return nil
}

// readFile returns the config file's contents. An empty path or missing
// file yields nil data.
func readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return data, nil
}

// readTOML parses path into a generic document, nil when there is no file.
func readTOML(path string) (map[string]any, error) {
	data, err := readFile(path)
	if err != nil || data == nil {
		return nil, err
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return doc, nil
}

// fieldNameToFlag converts a struct field name to the flag huma derives
// from it: "RecordingDir" -> "recording-dir".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// getNestedValue looks up a dotted path such as "server.port".
func getNestedValue(data map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current[parts[len(parts)-1]]
}

// setFieldValue assigns a decoded TOML value to field when the types fit.
func setFieldValue(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Float64:
		switch n := value.(type) {
		case float64:
			field.SetFloat(n)
		case int64:
			field.SetFloat(float64(n))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		if arr, ok := value.([]any); ok {
			slice := make([]string, 0, len(arr))
			for _, item := range arr {
				if s, ok := item.(string); ok {
					slice = append(slice, s)
				}
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
}

// setFieldValueFromString assigns an environment value to field.
// Slices are comma separated.
func setFieldValueFromString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Float64:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			field.SetFloat(f)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			slice := make([]string, len(parts))
			for i, part := range parts {
				slice[i] = strings.TrimSpace(part)
			}
			field.Set(reflect.ValueOf(slice))
		}
	}
}

// LoadLogging reads the [logging] table. Keys other than level and format
// are module levels; a [logging.modules] subtable is accepted as well.
// A missing file yields the defaults.
func LoadLogging(path string) (logging.Config, error) {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	doc, err := readTOML(path)
	if err != nil || doc == nil {
		return cfg, err
	}
	table, ok := doc["logging"].(map[string]any)
	if !ok {
		return cfg, nil
	}

	for key, value := range table {
		switch val := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = val
			case "format":
				cfg.Format = val
			default:
				cfg.Modules[key] = val
			}
		case map[string]any:
			if key != "modules" {
				continue
			}
			for module, level := range val {
				if s, ok := level.(string); ok {
					cfg.Modules[module] = s
				}
			}
		}
	}
	return cfg, nil
}
