// Package domain holds the telemetry record a tracking client reports once per run.
package domain

import "time"

// Record is the telemetry report for one run. Every field is optional and its
// presence can be queried independently. Flags only accumulate: Merge never
// clears a flag that is already set.
type Record struct {
	PythonVersion      *string     `json:"python_version,omitempty"`
	CLIVersion         *string     `json:"cli_version,omitempty"`
	HuggingfaceVersion *string     `json:"huggingface_version,omitempty"`
	Framework          *string     `json:"framework,omitempty"`
	ImportsInit        *Imports    `json:"imports_init,omitempty"`
	ImportsFinish      *Imports    `json:"imports_finish,omitempty"`
	Feature            *Feature    `json:"feature,omitempty"`
	Env                *Env        `json:"env,omitempty"`
	Deprecated         *Deprecated `json:"deprecated,omitempty"`
}

// Report is the envelope sent by a client to the ingestion service.
type Report struct {
	ID        int64     `json:"-"`
	RunID     string    `json:"run_id"`
	Entity    string    `json:"entity,omitempty"`
	Project   string    `json:"project,omitempty"`
	Record    Record    `json:"record"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *Record) SetPythonVersion(v string)      { r.PythonVersion = &v }
func (r *Record) SetCLIVersion(v string)         { r.CLIVersion = &v }
func (r *Record) SetHuggingfaceVersion(v string) { r.HuggingfaceVersion = &v }
func (r *Record) SetFramework(v string)          { r.Framework = &v }

func (r *Record) HasPythonVersion() bool      { return r.PythonVersion != nil }
func (r *Record) HasCLIVersion() bool         { return r.CLIVersion != nil }
func (r *Record) HasHuggingfaceVersion() bool { return r.HuggingfaceVersion != nil }
func (r *Record) HasFramework() bool          { return r.Framework != nil }
func (r *Record) HasImportsInit() bool        { return r.ImportsInit != nil }
func (r *Record) HasImportsFinish() bool      { return r.ImportsFinish != nil }
func (r *Record) HasFeature() bool            { return r.Feature != nil }
func (r *Record) HasEnv() bool                { return r.Env != nil }
func (r *Record) HasDeprecated() bool         { return r.Deprecated != nil }

// GetPythonVersion returns the python version or "" when absent.
func (r *Record) GetPythonVersion() string { return deref(r.PythonVersion) }

// GetCLIVersion returns the client version or "" when absent.
func (r *Record) GetCLIVersion() string { return deref(r.CLIVersion) }

// GetHuggingfaceVersion returns the huggingface version or "" when absent.
func (r *Record) GetHuggingfaceVersion() string { return deref(r.HuggingfaceVersion) }

// GetFramework returns the detected framework name or "" when absent.
func (r *Record) GetFramework() string { return deref(r.Framework) }

// InitImports returns imports_init, allocating it on first use.
func (r *Record) InitImports() *Imports {
	if r.ImportsInit == nil {
		r.ImportsInit = &Imports{}
	}
	return r.ImportsInit
}

// FinishImports returns imports_finish, allocating it on first use.
func (r *Record) FinishImports() *Imports {
	if r.ImportsFinish == nil {
		r.ImportsFinish = &Imports{}
	}
	return r.ImportsFinish
}

// Features returns feature, allocating it on first use.
func (r *Record) Features() *Feature {
	if r.Feature == nil {
		r.Feature = &Feature{}
	}
	return r.Feature
}

// Environment returns env, allocating it on first use.
func (r *Record) Environment() *Env {
	if r.Env == nil {
		r.Env = &Env{}
	}
	return r.Env
}

// Deprecations returns deprecated, allocating it on first use.
func (r *Record) Deprecations() *Deprecated {
	if r.Deprecated == nil {
		r.Deprecated = &Deprecated{}
	}
	return r.Deprecated
}

// Empty reports whether no field is present.
func (r *Record) Empty() bool {
	return r.PythonVersion == nil && r.CLIVersion == nil && r.HuggingfaceVersion == nil &&
		r.Framework == nil && r.ImportsInit == nil && r.ImportsFinish == nil &&
		r.Feature == nil && r.Env == nil && r.Deprecated == nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() Record {
	out := Record{
		PythonVersion:      cloneString(r.PythonVersion),
		CLIVersion:         cloneString(r.CLIVersion),
		HuggingfaceVersion: cloneString(r.HuggingfaceVersion),
		Framework:          cloneString(r.Framework),
	}
	if r.ImportsInit != nil {
		v := *r.ImportsInit
		out.ImportsInit = &v
	}
	if r.ImportsFinish != nil {
		v := *r.ImportsFinish
		out.ImportsFinish = &v
	}
	if r.Feature != nil {
		v := *r.Feature
		out.Feature = &v
	}
	if r.Env != nil {
		v := *r.Env
		out.Env = &v
	}
	if r.Deprecated != nil {
		v := *r.Deprecated
		out.Deprecated = &v
	}
	return out
}

// Merge folds other into r. Strings present in other replace r's; flags are
// OR-ed so nothing already set is ever retracted.
func (r *Record) Merge(other Record) {
	if other.PythonVersion != nil {
		r.SetPythonVersion(*other.PythonVersion)
	}
	if other.CLIVersion != nil {
		r.SetCLIVersion(*other.CLIVersion)
	}
	if other.HuggingfaceVersion != nil {
		r.SetHuggingfaceVersion(*other.HuggingfaceVersion)
	}
	if other.Framework != nil {
		r.SetFramework(*other.Framework)
	}
	if other.ImportsInit != nil {
		r.InitImports().Merge(*other.ImportsInit)
	}
	if other.ImportsFinish != nil {
		r.FinishImports().Merge(*other.ImportsFinish)
	}
	if other.Feature != nil {
		r.Features().Merge(*other.Feature)
	}
	if other.Env != nil {
		r.Environment().Merge(*other.Env)
	}
	if other.Deprecated != nil {
		r.Deprecations().Merge(*other.Deprecated)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
