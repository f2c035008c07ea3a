package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// DefaultOwnershipQuery is evaluated when a Rego module supplies no query.
const DefaultOwnershipQuery = "data.rdap.ownership.allow"

// RegistrantOwnership makes a user the owner of a record when the username
// matches one of the record's registrant handles, ignoring case.
type RegistrantOwnership struct{}

// IsOwner implements redact.OwnershipChecker.
func (RegistrantOwnership) IsOwner(_ context.Context, username string, obj domain.Object) bool {
	if username == "" || obj == nil {
		return false
	}
	for _, handle := range obj.Registrants() {
		if strings.EqualFold(handle, username) {
			return true
		}
	}
	return false
}

// RegoOwnership decides ownership with an operator-supplied Rego rule. The
// rule sees input.username and input.object.{kind, key, registrants} and must
// produce a boolean.
type RegoOwnership struct {
	query  rego.PreparedEvalQuery
	logger zerolog.Logger
}

// LoadRegoOwnership compiles the module in path.
func LoadRegoOwnership(ctx context.Context, path, query string, logger zerolog.Logger) (*RegoOwnership, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ownership module: %w", err)
	}
	return NewRegoOwnership(ctx, path, string(src), query, logger)
}

// NewRegoOwnership compiles a Rego v1 module once.
func NewRegoOwnership(ctx context.Context, name, src, query string, logger zerolog.Logger) (*RegoOwnership, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultOwnershipQuery
	}

	module, err := ast.ParseModuleWithOpts(name, src, ast.ParserOptions{RegoVersion: ast.RegoV1})
	if err != nil {
		return nil, fmt.Errorf("parse rego module %q: %w", name, err)
	}

	prepared, err := rego.New(
		rego.Query(query),
		rego.ParsedModule(module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile ownership rule: %w", err)
	}

	return &RegoOwnership{
		query:  prepared,
		logger: logger.With().Str("component", "ownership").Logger(),
	}, nil
}

// IsOwner implements redact.OwnershipChecker. Evaluation failures and
// non-boolean results deny ownership.
func (o *RegoOwnership) IsOwner(ctx context.Context, username string, obj domain.Object) bool {
	if username == "" || obj == nil {
		return false
	}

	registrants := obj.Registrants()
	if registrants == nil {
		registrants = []string{}
	}
	input := map[string]any{
		"username": username,
		"object": map[string]any{
			"kind":        obj.Kind().String(),
			"key":         obj.Key(),
			"registrants": registrants,
		},
	}

	results, err := o.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		o.logger.Warn().Err(err).Str("kind", obj.Kind().String()).Msg("Ownership rule evaluation failed")
		return false
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		o.logger.Warn().
			Str("kind", obj.Kind().String()).
			Msgf("Ownership rule returned %T, expected bool", results[0].Expressions[0].Value)
		return false
	}
	return allowed
}
