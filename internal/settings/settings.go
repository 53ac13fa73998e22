// Package settings is the tracking client's settings registry. Each property knows its
// default, how to coerce and validate a value, and which source last set it, so values
// from the environment, settings files and explicit arguments combine predictably.
package settings

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUsage reports a value that is well-typed but not allowed.
	ErrUsage = errors.New("settings: usage error")
	// ErrFrozen is returned by updates on frozen settings.
	ErrFrozen = errors.New("settings: frozen")
	// ErrUnknownKey is returned when an update names a setting that does not exist.
	ErrUnknownKey = errors.New("settings: unknown key")
)

const (
	DefaultBaseURL = "https://api.runtrack.dev"
	DefaultMode    = "online"
)

type property struct {
	kind       Kind
	def        any
	preprocess []func(any) (any, error)
	validate   []func(any) error
	// hook derives the value seen by readers from the stored one.
	hook   func(s *Settings, v any) any
	policy bool
	env    string

	value  any
	source Source
	set    bool
}

func (p *property) clone() *property {
	c := *p
	if l, ok := p.value.([]string); ok {
		c.value = append([]string(nil), l...)
	}
	return &c
}

// Settings is safe for concurrent use.
type Settings struct {
	mu     sync.RWMutex
	props  map[string]*property
	frozen bool
}

// New returns settings populated with defaults at SourceBase.
func New() *Settings {
	s := &Settings{props: make(map[string]*property)}
	for name, p := range registry() {
		p.source = SourceBase
		if p.env == "" {
			p.env = EnvPrefix + strings.ToUpper(name)
		}
		s.props[name] = p
	}
	return s
}

func registry() map[string]*property {
	str := func(def any, extra ...func(any) error) *property {
		return &property{kind: KindString, def: def, validate: extra}
	}
	boolean := func(def any) *property { return &property{kind: KindBool, def: def} }
	integer := func(def any) *property { return &property{kind: KindInt, def: def} }
	inDir := func(base func(*Settings) string) func(*Settings, any) any {
		return func(s *Settings, v any) any { return filepath.Join(base(s), v.(string)) }
	}

	return map[string]*property{
		"mode":      str(DefaultMode, oneOf("mode", "dryrun", "run", "offline", "online", "disabled")),
		"project":   str(nil, validateProject),
		"entity":    str(nil),
		"api_key":   str(nil),
		"anonymous": str(nil, oneOf("anonymous", "allow", "must", "never", "false", "true")),
		"console":   str("auto", oneOf("console", "auto", "redirect", "off", "wrap")),
		"problem":   str("fatal", oneOf("problem", "fatal", "warn", "silent")),
		"start_method": str(nil,
			oneOf("start_method", "thread", "fork", "spawn", "forkserver")),
		"base_url": {
			kind:       KindString,
			def:        DefaultBaseURL,
			preprocess: []func(any) (any, error){trimTrailingSlash},
			validate:   []func(any) error{validateBaseURL},
		},
		"run_id":       str(nil),
		"run_name":     {kind: KindString, env: EnvPrefix + "NAME"},
		"run_notes":    {kind: KindString, env: EnvPrefix + "NOTES"},
		"run_group":    str(nil),
		"run_job_type": {kind: KindString, env: EnvPrefix + "JOB_TYPE"},
		"run_tags":     {kind: KindStrings, env: EnvPrefix + "TAGS"},
		"root_dir":     {kind: KindString, env: EnvPrefix + "DIR"},
		"git_remote":   str("origin"),
		"ignore_globs": {kind: KindStrings, def: []string{}},
		"timespec":     str(nil),

		"quiet":         boolean(nil),
		"silent":        boolean(false),
		"show_info":     boolean(true),
		"show_warnings": boolean(true),
		"show_errors":   boolean(true),
		"save_code":     boolean(nil),
		"disable_code":  boolean(nil),
		"disable_git":   boolean(nil),

		"summary_warnings":      {kind: KindInt, def: 5, policy: true},
		"heartbeat_seconds":     integer(30),
		"system_sample_seconds": integer(2),
		"system_sample":         integer(15),
		"login_timeout":         {kind: KindFloat},

		"sync_dir_spec": {kind: KindString, def: "", hook: func(s *Settings, _ any) any {
			return s.syncDir()
		}},
		"sync_file_spec": {kind: KindString, def: "run-%s.tracker", hook: func(s *Settings, v any) any {
			return filepath.Join(s.syncDir(), fmt.Sprintf(v.(string), s.str("run_id")))
		}},
		"files_dir_spec": {kind: KindString, def: "files", hook: inDir((*Settings).syncDir)},
		"log_dir_spec":   {kind: KindString, def: "logs", hook: inDir((*Settings).syncDir)},
		"tmp_dir_spec":   {kind: KindString, def: "tmp", hook: inDir((*Settings).syncDir)},
		"log_user_spec": {kind: KindString, def: "debug.log", hook: func(s *Settings, v any) any {
			return filepath.Join(s.syncDir(), "logs", v.(string))
		}},
		"log_internal_spec": {kind: KindString, def: "debug-internal.log", hook: func(s *Settings, v any) any {
			return filepath.Join(s.syncDir(), "logs", v.(string))
		}},
		"resume_fname_spec":       {kind: KindString, def: "tracker-resume.json", hook: inDir((*Settings).trackerDir)},
		"settings_workspace_spec": {kind: KindString, def: "settings", hook: inDir((*Settings).trackerDir)},
		"settings_system_spec": {kind: KindString, def: filepath.Join("~", ".config", "tracker", "settings"),
			env: EnvPrefix + "CONFIG_PATHS"},
	}
}

// normalize coerces, preprocesses and validates v for p. A nil value clears the setting.
func (p *property) normalize(name string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	out, err := coerce(p.kind, v)
	if err != nil {
		return nil, fmt.Errorf("%w: settings field `%s`: %v", ErrUsage, name, err)
	}
	for _, pre := range p.preprocess {
		if out, err = pre(out); err != nil {
			return nil, err
		}
	}
	for _, check := range p.validate {
		if err := check(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Update applies values from source. Unknown keys and invalid values fail the whole
// update; values from a source the property does not accept are ignored.
func (s *Settings) Update(values map[string]any, source Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return ErrFrozen
	}
	var unknown []string
	for name := range values {
		if _, ok := s.props[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(unknown, ", "))
	}

	normalized := make(map[string]any, len(values))
	for name, v := range values {
		out, err := s.props[name].normalize(name, v)
		if err != nil {
			return err
		}
		normalized[name] = out
	}
	for name, v := range normalized {
		p := s.props[name]
		if !accepts(p.policy, p.source, source) {
			continue
		}
		p.value, p.source, p.set = v, source, true
	}
	return nil
}

// Get returns the resolved value of name, or nil when it has no value.
func (s *Settings) Get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.props[name]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, name)
	}
	return s.resolve(name), nil
}

// Source returns the source that last set name.
func (s *Settings) Source(name string) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.props[name]
	if !ok {
		return 0, false
	}
	return p.source, true
}

// String returns name as a string, "" when unset or not a string setting.
func (s *Settings) String(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.str(name)
}

// Bool returns name as a bool and whether it has a value.
func (s *Settings) Bool(name string) (value, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok = s.resolve(name).(bool)
	return value, ok
}

// Int returns name as an int, 0 when unset.
func (s *Settings) Int(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := s.resolve(name).(int)
	return v
}

// Strings returns a copy of a list setting.
func (s *Settings) Strings(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := s.resolve(name).([]string)
	return append([]string(nil), v...)
}

// resolve must be called with s.mu held.
func (s *Settings) resolve(name string) any {
	p, ok := s.props[name]
	if !ok {
		return nil
	}
	v := p.def
	if p.set {
		v = p.value
	}
	if p.hook != nil && v != nil {
		return p.hook(s, v)
	}
	return v
}

func (s *Settings) str(name string) string {
	v, _ := s.resolve(name).(string)
	return v
}

func (s *Settings) trackerDir() string {
	root := s.str("root_dir")
	if root == "" {
		root = "."
	}
	return filepath.Join(root, "tracker")
}

func (s *Settings) syncDir() string {
	return filepath.Join(s.trackerDir(),
		fmt.Sprintf("%s-%s-%s", s.runMode(), s.str("timespec"), s.str("run_id")))
}

func (s *Settings) runMode() string {
	switch s.str("mode") {
	case "offline", "dryrun":
		return "offline-run"
	}
	return "run"
}

// RunMode is "offline-run" for offline and dryrun modes and "run" otherwise.
func (s *Settings) RunMode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runMode()
}

// Offline reports whether runs sync later instead of streaming.
func (s *Settings) Offline() bool {
	return s.RunMode() == "offline-run"
}

// IsLocal reports whether the client talks to a server other than the hosted one.
func (s *Settings) IsLocal() bool {
	base := s.String("base_url")
	return base != "" && base != DefaultBaseURL
}

func (s *Settings) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

func (s *Settings) Unfreeze() {
	s.mu.Lock()
	s.frozen = false
	s.mu.Unlock()
}

func (s *Settings) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// Copy returns an unfrozen deep copy.
func (s *Settings) Copy() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &Settings{props: make(map[string]*property, len(s.props))}
	for name, p := range s.props {
		c.props[name] = p.clone()
	}
	return c
}

// Keys returns every setting name, sorted.
func (s *Settings) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.props))
	for name := range s.props {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// Static returns every resolved value, hooks applied.
func (s *Settings) Static() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.props))
	for name := range s.props {
		out[name] = s.resolve(name)
	}
	return out
}

const (
	DefaultRedaction = "***REDACTED***"
)

// DefaultUnsafeKeys are redacted when Redact is given none.
var DefaultUnsafeKeys = []string{"api_key"}

// Redact returns a copy of values with unsafe keys replaced.
func Redact(values map[string]any, unsafeKeys []string, replacement string) map[string]any {
	if unsafeKeys == nil {
		unsafeKeys = DefaultUnsafeKeys
	}
	if replacement == "" {
		replacement = DefaultRedaction
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, k := range unsafeKeys {
		if _, ok := out[k]; ok {
			out[k] = replacement
		}
	}
	return out
}
