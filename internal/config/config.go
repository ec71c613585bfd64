package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2/casing"
	"github.com/myle-app/myle/internal/logging"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "MYLE_"

// binding ties one options field to its CLI flag, TOML key and environment variable.
type binding struct {
	field reflect.Value
	flag  string
	toml  string
	env   string
}

// LoadConfig fills opts, a pointer to a flat options struct, from the TOML file
// named by its Config field and from the environment. Precedence is
// CLI > env > file: flags the user set on cmd are left alone.
//
// Values of the wrong type are reported together; every other field is still applied.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("options must be a pointer to a struct, got %T", opts)
	}
	v = v.Elem()

	var configPath string
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		configPath = f.String()
	}
	tree, err := readTree(configPath)
	if err != nil {
		return err
	}

	changed := changedFlags(cmd)
	var errs []error
	for _, b := range bindingsOf(v) {
		if changed[b.flag] {
			continue
		}
		if value, ok := lookup(tree, b.toml); ok {
			if setErr := assign(b.field, value); setErr != nil {
				errs = append(errs, fmt.Errorf("%s: %w", b.toml, setErr))
			}
		}
		if b.env == "" {
			continue
		}
		if raw := os.Getenv(EnvPrefix + b.env); raw != "" {
			if setErr := assignString(b.field, raw); setErr != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, b.env, setErr))
			}
		}
	}
	return errors.Join(errs...)
}

// LoadLoggingConfig reads the [logging] table of the config file for commands
// that run without the full options struct. Read and parse errors yield the defaults.
func LoadLoggingConfig(configPath string) logging.Config {
	rt, _ := LoadRuntime(configPath)
	return rt.Logging
}

// readTree parses the config file. A missing file, or no path at all, is an empty tree.
func readTree(path string) (map[string]any, error) {
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

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return tree, nil
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = true
	})
	return changed
}

func bindingsOf(v reflect.Value) []binding {
	t := v.Type()
	bindings := make([]binding, 0, t.NumField())
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		b := binding{
			field: v.Field(i),
			flag:  sf.Tag.Get("name"),
			toml:  sf.Tag.Get("toml"),
			env:   sf.Tag.Get("env"),
		}
		if b.flag == "" {
			b.flag = fieldNameToFlag(sf.Name)
		}
		if b.toml == "" && b.env == "" {
			continue
		}
		bindings = append(bindings, b)
	}
	return bindings
}

// fieldNameToFlag converts a struct field name to the flag name humacli gives it.
// Example: "LoggingLevel" -> "logging-level".
func fieldNameToFlag(fieldName string) string {
	return casing.Kebab(fieldName)
}

// lookup finds a dotted key such as "updates.repository" in a parsed TOML tree.
func lookup(tree map[string]any, path string) (any, bool) {
	if tree == nil || path == "" {
		return nil, false
	}
	keys := strings.Split(path, ".")
	for _, key := range keys[:len(keys)-1] {
		next, ok := tree[key].(map[string]any)
		if !ok {
			return nil, false
		}
		tree = next
	}
	value, ok := tree[keys[len(keys)-1]]
	return value, ok
}

// assign stores a decoded TOML value in field.
func assign(field reflect.Value, value any) error {
	mismatch := fmt.Errorf("expected %s, got %T", field.Type(), value)

	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return mismatch
		}
		field.SetString(s)
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return mismatch
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, ok := value.(int64)
		if !ok {
			return mismatch
		}
		if field.OverflowInt(n) {
			return fmt.Errorf("%d overflows %s", n, field.Type())
		}
		field.SetInt(n)
	case reflect.Slice:
		items, ok := value.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return mismatch
		}
		list := make([]string, len(items))
		for i, item := range items {
			s, isString := item.(string)
			if !isString {
				return fmt.Errorf("item %d: expected string, got %T", i, item)
			}
			list[i] = s
		}
		field.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// assignString stores an environment value in field. Lists are comma-separated.
func assignString(field reflect.Value, raw string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported field type %s", field.Type())
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
