// Package policy decides with OPA Rego whether an incoming telemetry report is ingested.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"runtelemetry/internal/telemetry/domain"
)

// Package is the Rego package every ingestion policy must declare.
const Package = "runtelemetry.ingest"

// DefaultPolicy rejects reports that cannot be attributed to a run or a client version.
const DefaultPolicy = `package runtelemetry.ingest

deny contains "run_id is required" if {
	input.run_id == ""
}

deny contains "record.cli_version is required" if {
	not input.record.cli_version
}

allow if {
	count(deny) == 0
}
`

// Decision is the outcome of evaluating one report.
type Decision struct {
	Allow   bool
	Reasons []string
}

// Evaluator holds a compiled policy ready for repeated evaluation.
type Evaluator struct {
	allow rego.PreparedEvalQuery
	deny  rego.PreparedEvalQuery
}

// NewEvaluator compiles source, or DefaultPolicy when source is empty.
func NewEvaluator(ctx context.Context, source string) (*Evaluator, error) {
	if source == "" {
		source = DefaultPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"ingest.rego": source})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	prepare := func(rule string) (rego.PreparedEvalQuery, error) {
		return rego.New(
			rego.Query("data."+Package+"."+rule),
			rego.Compiler(compiler),
		).PrepareForEval(ctx)
	}
	e := &Evaluator{}
	if e.allow, err = prepare("allow"); err != nil {
		return nil, fmt.Errorf("prepare allow: %w", err)
	}
	if e.deny, err = prepare("deny"); err != nil {
		return nil, fmt.Errorf("prepare deny: %w", err)
	}
	return e, nil
}

// LoadFile compiles the policy at path; an empty path selects DefaultPolicy.
func LoadFile(ctx context.Context, path string) (*Evaluator, error) {
	if path == "" {
		return NewEvaluator(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	return NewEvaluator(ctx, string(b))
}

// Input is the document a policy sees as `input`: the report's JSON form.
func Input(report *domain.Report) (map[string]interface{}, error) {
	b, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	var input map[string]interface{}
	if err := json.Unmarshal(b, &input); err != nil {
		return nil, err
	}
	return input, nil
}

// Evaluate decides on report. An undefined allow rule counts as deny; reasons come from
// the deny set when the policy defines one.
func (e *Evaluator) Evaluate(ctx context.Context, report *domain.Report) (Decision, error) {
	input, err := Input(report)
	if err != nil {
		return Decision{}, fmt.Errorf("build input: %w", err)
	}
	allowRS, err := e.allow.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("eval allow: %w", err)
	}
	denyRS, err := e.deny.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("eval deny: %w", err)
	}

	var d Decision
	if v, ok := firstValue(allowRS); ok {
		d.Allow, _ = v.(bool)
	}
	if v, ok := firstValue(denyRS); ok {
		d.Reasons = toStrings(v)
	}
	if !d.Allow && len(d.Reasons) == 0 {
		d.Reasons = []string{"denied by policy"}
	}
	return d, nil
}

func firstValue(rs rego.ResultSet) (interface{}, bool) {
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, false
	}
	return rs[0].Expressions[0].Value, true
}

func toStrings(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// HealthCheck verifies the compiled policy evaluates against a well-formed report.
// Returns nil on success.
func (e *Evaluator) HealthCheck(ctx context.Context) error {
	probe := &domain.Report{RunID: "healthcheck"}
	probe.Record.SetCLIVersion("0.0.0")
	if _, err := e.Evaluate(ctx, probe); err != nil {
		return err
	}
	return nil
}
