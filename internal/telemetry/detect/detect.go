// Package detect fills a telemetry record from what the client observed in the user's process:
// loaded modules and hosting environment variables.
package detect

import (
	"strings"

	"runtelemetry/internal/telemetry/domain"
)

// Phase selects which imports field Populate writes.
type Phase int

const (
	// PhaseInit is the snapshot taken when the run starts.
	PhaseInit Phase = iota
	// PhaseFinish is the snapshot taken when the run ends.
	PhaseFinish
)

func (p Phase) String() string {
	if p == PhaseFinish {
		return "finish"
	}
	return "init"
}

// moduleFlags maps a top-level module name to its Imports flag name.
var moduleFlags = map[string]string{
	"torch":             "torch",
	"keras":             "keras",
	"tensorflow":        "tensorflow",
	"fastai":            "fastai",
	"sklearn":           "sklearn",
	"xgboost":           "xgboost",
	"catboost":          "catboost",
	"lightgbm":          "lightgbm",
	"pytorch_lightning": "pytorch_lightning",
	"ignite":            "pytorch_ignite",
	"transformers":      "transformers",
}

// frameworkPriority orders frameworks from the most specific wrapper to the most generic,
// so a Lightning script reports pytorch_lightning rather than torch.
var frameworkPriority = []string{
	"lightgbm", "catboost", "xgboost", "pytorch_lightning", "pytorch_ignite",
	"transformers", "fastai", "torch", "keras", "tensorflow", "sklearn",
}

// Imports returns the Imports flags for the given loaded module names. Submodules
// ("tensorflow.keras") count for their top-level package only.
func Imports(modules []string) domain.Imports {
	var out domain.Imports
	for _, m := range modules {
		top := strings.TrimSpace(m)
		if i := strings.IndexByte(top, '.'); i >= 0 {
			top = top[:i]
		}
		if flag, ok := moduleFlags[top]; ok {
			_ = out.Set(flag)
		}
	}
	return out
}

// Framework returns the framework name to report for imports, or "" when none is loaded.
func Framework(imports domain.Imports) string {
	set := make(map[string]bool)
	for _, name := range imports.Enabled() {
		set[name] = true
	}
	for _, name := range frameworkPriority {
		if set[name] {
			return name
		}
	}
	return ""
}

// Environment detects the hosting environment through getenv (os.Getenv in production).
func Environment(getenv func(string) string) domain.Env {
	var env domain.Env
	if getenv == nil {
		return env
	}
	if getenv("KAGGLE_KERNEL_RUN_TYPE") != "" {
		env.Kaggle = true
	}
	if getenv("JPY_PARENT_PID") != "" {
		env.Jupyter = true
	}
	return env
}

// Populate records the modules loaded at phase into tel and updates the framework
// when one is detected. An empty module list still marks the phase as observed.
func Populate(tel *domain.Record, phase Phase, modules []string) {
	imports := Imports(modules)
	switch phase {
	case PhaseFinish:
		tel.FinishImports().Merge(imports)
	default:
		tel.InitImports().Merge(imports)
	}
	if fw := Framework(imports); fw != "" {
		tel.SetFramework(fw)
	}
}
