// Package parse implements the small ".config"-file reader used by the CLI:
// a ConfigVars builder that callers register destination fields against, and
// a ReadConfig function that fills them in from a "Key = value" text file.
package parse

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ConfigVars accumulates named variable bindings for a single config file
// before it is read. Create one with NewConfigVars, register every field
// with the typed setters, then call ReadConfig.
type ConfigVars struct {
	name string
	set  map[string]func(string) error
	seen map[string]bool
}

// NewConfigVars creates an empty ConfigVars for a config file named name
// (used only in error messages).
func NewConfigVars(name string) *ConfigVars {
	return &ConfigVars{
		name: name,
		set:  make(map[string]func(string) error),
		seen: make(map[string]bool),
	}
}

func (vars *ConfigVars) register(key string, fn func(string) error) {
	vars.set[key] = fn
}

// String registers a string-valued field, defaulting to def.
func (vars *ConfigVars) String(dst *string, key, def string) {
	*dst = def
	vars.register(key, func(s string) error {
		*dst = s
		return nil
	})
}

// Int registers an int64-valued field, defaulting to def.
func (vars *ConfigVars) Int(dst *int64, key string, def int64) {
	*dst = def
	vars.register(key, func(s string) error {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("variable '%s' must be an integer, got '%s'", key, s)
		}
		*dst = v
		return nil
	})
}

// Float registers a float64-valued field, defaulting to def.
func (vars *ConfigVars) Float(dst *float64, key string, def float64) {
	*dst = def
	vars.register(key, func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("variable '%s' must be a float, got '%s'", key, s)
		}
		*dst = v
		return nil
	})
}

// Ints registers a comma-separated int64-slice field, defaulting to def.
func (vars *ConfigVars) Ints(dst *[]int64, key string, def []int64) {
	*dst = def
	vars.register(key, func(s string) error {
		fields := strings.Split(s, ",")
		out := make([]int64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
			if err != nil {
				return fmt.Errorf("variable '%s' must be a comma-separated list of integers, got '%s'", key, s)
			}
			out[i] = v
		}
		*dst = out
		return nil
	})
}

// Bool registers a bool-valued field, defaulting to def.
func (vars *ConfigVars) Bool(dst *bool, key string, def bool) {
	*dst = def
	vars.register(key, func(s string) error {
		v, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("variable '%s' must be a bool, got '%s'", key, s)
		}
		*dst = v
		return nil
	})
}

// ReadConfig reads fname as a sequence of "Key = value" lines, ignoring
// blank lines, "#"-comments, and the "[section.config]" header line, and
// applies every recognized key to the field registered in vars. Unrecognized
// keys are an error.
func ReadConfig(fname string, vars *ConfigVars) error {
	f, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open config file '%s': %w", fname, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("%s:%d: expected 'Key = value', got '%s'", fname, lineNum, sc.Text())
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])

		setter, ok := vars.set[key]
		if !ok {
			return fmt.Errorf("%s:%d: unrecognized variable '%s'", fname, lineNum, key)
		}
		if vars.seen[key] {
			return fmt.Errorf("%s:%d: variable '%s' set more than once", fname, lineNum, key)
		}
		vars.seen[key] = true

		if err := setter(val); err != nil {
			return fmt.Errorf("%s:%d: %w", fname, lineNum, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("error reading config file '%s': %w", fname, err)
	}
	return nil
}
