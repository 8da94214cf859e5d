package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const lifetimeQuery = "data.riverside.session.lifetime_hours"

// DefaultRegoPolicy reproduces StaticLifetime: the remember-me window when requested,
// the standard window otherwise.
const DefaultRegoPolicy = `package riverside.session

default lifetime_hours = 168

lifetime_hours = input.defaults.remember_me_hours if {
	input.remember_me
}

lifetime_hours = input.defaults.standard_hours if {
	not input.remember_me
}
`

// OPAEvaluator evaluates the session lifetime with an OPA Rego policy compiled once at startup.
// Evaluation failures fall back to the static defaults and are logged.
type OPAEvaluator struct {
	query    rego.PreparedEvalQuery
	fallback StaticLifetime
	log      *slog.Logger
}

// NewOPAEvaluator compiles policy (DefaultRegoPolicy when empty). fallback supplies the
// defaults passed to the policy as input and the answer used when evaluation fails.
func NewOPAEvaluator(ctx context.Context, policy string, fallback StaticLifetime, log *slog.Logger) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultRegoPolicy
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	compiler, err := ast.CompileModules(map[string]string{"session_lifetime.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(lifetimeQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &OPAEvaluator{query: pq, fallback: fallback, log: log.With("component", "policy")}, nil
}

// SessionLifetime evaluates the policy for one login.
func (e *OPAEvaluator) SessionLifetime(ctx context.Context, rememberMe bool, role string) (time.Duration, error) {
	d, err := e.evaluate(ctx, rememberMe, role)
	if err != nil {
		e.log.WarnContext(ctx, "policy evaluation failed, using defaults", tint.Err(err))
		return e.fallback.SessionLifetime(ctx, rememberMe, role)
	}
	return d, nil
}

// HealthCheck evaluates the compiled policy once with a minimal input. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.evaluate(ctx, false, "user")
	return err
}

func (e *OPAEvaluator) evaluate(ctx context.Context, rememberMe bool, role string) (time.Duration, error) {
	input := map[string]interface{}{
		"remember_me": rememberMe,
		"role":        role,
		"defaults": map[string]interface{}{
			"standard_hours":    int64(e.fallback.Default / time.Hour),
			"remember_me_hours": int64(e.fallback.RememberMe / time.Hour),
		},
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return 0, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return 0, fmt.Errorf("policy query returned no result")
	}
	hours, err := toHours(rs[0].Expressions[0].Value)
	if err != nil {
		return 0, err
	}
	if hours <= 0 {
		return 0, fmt.Errorf("policy returned non-positive lifetime %d", hours)
	}
	return time.Duration(hours) * time.Hour, nil
}

func toHours(v interface{}) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("policy returned %q: %w", n, err)
		}
		return int64(f), nil
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("policy returned %T, want number", v)
	}
}
