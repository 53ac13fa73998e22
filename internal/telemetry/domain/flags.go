package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownFlag is returned when a flag name does not belong to the flag set.
var ErrUnknownFlag = errors.New("unknown flag")

// Imports records which ML frameworks were imported by the process.
type Imports struct {
	Torch            bool `json:"torch,omitempty"`
	Keras            bool `json:"keras,omitempty"`
	Tensorflow       bool `json:"tensorflow,omitempty"`
	Fastai           bool `json:"fastai,omitempty"`
	Sklearn          bool `json:"sklearn,omitempty"`
	Xgboost          bool `json:"xgboost,omitempty"`
	Catboost         bool `json:"catboost,omitempty"`
	Lightgbm         bool `json:"lightgbm,omitempty"`
	PytorchLightning bool `json:"pytorch_lightning,omitempty"`
	PytorchIgnite    bool `json:"pytorch_ignite,omitempty"`
	Transformers     bool `json:"transformers,omitempty"`
}

// ImportNames lists the Imports flags in field-number order.
var ImportNames = []string{
	"torch", "keras", "tensorflow", "fastai", "sklearn", "xgboost",
	"catboost", "lightgbm", "pytorch_lightning", "pytorch_ignite", "transformers",
}

// Flags returns pointers to the flags in ImportNames order.
func (i *Imports) Flags() []*bool {
	return []*bool{
		&i.Torch, &i.Keras, &i.Tensorflow, &i.Fastai, &i.Sklearn, &i.Xgboost,
		&i.Catboost, &i.Lightgbm, &i.PytorchLightning, &i.PytorchIgnite, &i.Transformers,
	}
}

// Set turns on the flag called name.
func (i *Imports) Set(name string) error {
	return setFlag(ImportNames, i.Flags(), name)
}

// Enabled returns the names of the flags that are set, in field order.
func (i *Imports) Enabled() []string {
	return enabled(ImportNames, i.Flags())
}

// Merge ORs other's flags into i.
func (i *Imports) Merge(other Imports) {
	mergeFlags(i.Flags(), other.Flags())
}

// Feature records which optional client capabilities a run used.
type Feature struct {
	Watch  bool `json:"watch,omitempty"`
	Finish bool `json:"finish,omitempty"`
	Save   bool `json:"save,omitempty"`
}

// FeatureNames lists the Feature flags in field-number order.
var FeatureNames = []string{"watch", "finish", "save"}

// Flags returns pointers to the flags in FeatureNames order.
func (f *Feature) Flags() []*bool { return []*bool{&f.Watch, &f.Finish, &f.Save} }

// Set turns on the flag called name.
func (f *Feature) Set(name string) error { return setFlag(FeatureNames, f.Flags(), name) }

// Enabled returns the names of the flags that are set.
func (f *Feature) Enabled() []string { return enabled(FeatureNames, f.Flags()) }

// Merge sets every flag set in other; it never clears one.
func (f *Feature) Merge(other Feature) { mergeFlags(f.Flags(), other.Flags()) }

// Env records the hosting environment detected for a run.
type Env struct {
	Jupyter bool `json:"jupyter,omitempty"`
	Kaggle  bool `json:"kaggle,omitempty"`
}

// EnvNames lists the Env flags in field-number order.
var EnvNames = []string{"jupyter", "kaggle"}

// Flags returns pointers to the flags in EnvNames order.
func (e *Env) Flags() []*bool { return []*bool{&e.Jupyter, &e.Kaggle} }

// Set turns on the flag called name.
func (e *Env) Set(name string) error { return setFlag(EnvNames, e.Flags(), name) }

// Enabled returns the names of the flags that are set.
func (e *Env) Enabled() []string { return enabled(EnvNames, e.Flags()) }

// Merge sets every flag set in other; it never clears one.
func (e *Env) Merge(other Env) { mergeFlags(e.Flags(), other.Flags()) }

// DeprecatedFeature names a deprecated client feature whose use is recorded in telemetry.
type DeprecatedFeature string

const (
	KerasCallbackDataType DeprecatedFeature = "keras_callback__data_type"
	RunMode               DeprecatedFeature = "run__mode"
	RunSaveNoArgs         DeprecatedFeature = "run__save_no_args"
	RunJoin               DeprecatedFeature = "run__join"
)

// DeprecatedFeatures lists every DeprecatedFeature in field-number order.
var DeprecatedFeatures = []DeprecatedFeature{KerasCallbackDataType, RunMode, RunSaveNoArgs, RunJoin}

// ParseDeprecatedFeature validates name against DeprecatedFeatures.
func ParseDeprecatedFeature(name string) (DeprecatedFeature, error) {
	for _, f := range DeprecatedFeatures {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("deprecated feature %q: %w", name, ErrUnknownFlag)
}

// Deprecated records which deprecated features a run used.
type Deprecated struct {
	KerasCallbackDataType bool `json:"keras_callback__data_type,omitempty"`
	RunMode               bool `json:"run__mode,omitempty"`
	RunSaveNoArgs         bool `json:"run__save_no_args,omitempty"`
	RunJoin               bool `json:"run__join,omitempty"`
}

// Flags returns pointers to the flags in DeprecatedFeatures order.
func (d *Deprecated) Flags() []*bool {
	return []*bool{&d.KerasCallbackDataType, &d.RunMode, &d.RunSaveNoArgs, &d.RunJoin}
}

// Set turns on the flag for f.
func (d *Deprecated) Set(f DeprecatedFeature) error {
	return setFlag(deprecatedNames(), d.Flags(), string(f))
}

// Enabled returns the names of the features that are set.
func (d *Deprecated) Enabled() []string { return enabled(deprecatedNames(), d.Flags()) }

func deprecatedNames() []string {
	names := make([]string, len(DeprecatedFeatures))
	for i, n := range DeprecatedFeatures {
		names[i] = string(n)
	}
	return names
}

// Merge sets every flag set in other; it never clears one.
func (d *Deprecated) Merge(other Deprecated) { mergeFlags(d.Flags(), other.Flags()) }

func setFlag(names []string, flags []*bool, name string) error {
	for i, n := range names {
		if n == name {
			*flags[i] = true
			return nil
		}
	}
	return fmt.Errorf("%q: %w", name, ErrUnknownFlag)
}

func enabled(names []string, flags []*bool) []string {
	var out []string
	for i, f := range flags {
		if *f {
			out = append(out, names[i])
		}
	}
	return out
}

func mergeFlags(dst, src []*bool) {
	for i := range dst {
		if *src[i] {
			*dst[i] = true
		}
	}
}
