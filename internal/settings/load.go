package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/ini.v1"
)

// EnvPrefix prefixes every environment variable the client reads.
const EnvPrefix = "TRACKER_"

// fileSection is the ini section settings files keep their values in.
const fileSection = "default"

// Environ returns the process environment as a map.
func Environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// ApplyEnviron applies every TRACKER_* variable in env that maps to a setting, at SourceEnv.
// TRACKER_DISABLE_CODE=true also turns save_code off.
func (s *Settings) ApplyEnviron(env map[string]string) error {
	s.mu.RLock()
	values := make(map[string]any)
	for name, p := range s.props {
		if v, ok := env[p.env]; ok {
			values[name] = v
		}
	}
	s.mu.RUnlock()

	if v, ok := values["disable_code"]; ok {
		if disabled, err := cast.ToBoolE(v); err == nil && disabled {
			values["save_code"] = false
		}
	}
	if len(values) == 0 {
		return nil
	}
	if err := s.Update(values, SourceEnv); err != nil {
		return fmt.Errorf("settings: apply environment: %w", err)
	}
	return nil
}

// LoadFile applies the [default] section of the ini file at path with the given source.
// A missing file is not an error. Keys that do not name a setting are logged and skipped.
func (s *Settings) LoadFile(path string, source Source) error {
	cfg, err := ini.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("settings: load %s: %w", path, err)
	}
	sec, err := cfg.GetSection(fileSection)
	if err != nil {
		return nil
	}

	values := make(map[string]any)
	s.mu.RLock()
	for _, key := range sec.Keys() {
		if _, ok := s.props[key.Name()]; !ok {
			log.Printf("settings: %s: ignoring unknown key %q", path, key.Name())
			continue
		}
		values[key.Name()] = key.String()
	}
	s.mu.RUnlock()

	if len(values) == 0 {
		return nil
	}
	if err := s.Update(values, source); err != nil {
		return fmt.Errorf("settings: load %s: %w", path, err)
	}
	return nil
}

// WriteFile stores values under the [default] section of the ini file at path,
// keeping keys already there.
func WriteFile(path string, values map[string]string) error {
	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return fmt.Errorf("settings: load %s: %w", path, err)
	}
	sec := cfg.Section(fileSection)
	for k, v := range values {
		sec.Key(k).SetValue(v)
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("settings: save %s: %w", path, err)
	}
	return nil
}
