package redact

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pcarana/rdap-server/pkg/domain"
	"github.com/pcarana/rdap-server/pkg/policy"
	"github.com/pcarana/rdap-server/pkg/telemetry"
)

// Requester identifies who a response is being prepared for.
type Requester struct {
	Username      string
	Authenticated bool
}

// OwnershipChecker answers whether username owns obj. It is consulted only
// for authenticated requesters.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, username string, obj domain.Object) bool
}

// OwnershipFunc adapts a function to OwnershipChecker.
type OwnershipFunc func(ctx context.Context, username string, obj domain.Object) bool

// IsOwner calls f.
func (f OwnershipFunc) IsOwner(ctx context.Context, username string, obj domain.Object) bool {
	return f(ctx, username, obj)
}

// TableSource provides the policy snapshot in effect.
type TableSource interface {
	Current() *policy.Tables
}

// StaticTables serves one fixed snapshot.
type StaticTables struct {
	Tables *policy.Tables
}

// Current returns the fixed snapshot.
func (s StaticTables) Current() *policy.Tables {
	return s.Tables
}

// Engine redacts record graphs in place.
type Engine struct {
	tables  TableSource
	owners  OwnershipChecker
	logger  zerolog.Logger
	tracer  trace.Tracer
	schemas *schemas
}

// NewEngine builds an engine. A nil owners checker makes nobody an owner.
func NewEngine(tables TableSource, owners OwnershipChecker, logger zerolog.Logger) *Engine {
	return &Engine{
		tables:  tables,
		owners:  owners,
		logger:  logger.With().Str("component", "redact").Logger(),
		tracer:  otel.Tracer("github.com/pcarana/rdap-server/pkg/redact"),
		schemas: newSchemas(),
	}
}

// Redact clears every field of obj, and of the objects it contains, that the
// requester may not see. It reports whether anything was withheld.
//
// A *policy.MissingPolicyError means a field holding data has no configured
// level; the request must fail.
func (e *Engine) Redact(ctx context.Context, requester Requester, obj domain.Object) (bool, error) {
	kind := "unknown"
	if obj != nil {
		kind = obj.Kind().Slug()
	}
	return e.run(ctx, requester, kind, 1, func(w *walker) (bool, error) {
		return e.schemas.redactObject(w, obj)
	})
}

// RedactAll redacts a result set. Authentication is shared by every record;
// ownership is decided per record.
func (e *Engine) RedactAll(ctx context.Context, requester Requester, objs []domain.Object) (bool, error) {
	kind := "unknown"
	if len(objs) > 0 && objs[0] != nil {
		kind = objs[0].Kind().Slug()
	}
	return e.run(ctx, requester, kind, len(objs), func(w *walker) (bool, error) {
		redacted := false
		for _, obj := range objs {
			r, err := e.schemas.redactObject(w, obj)
			if err != nil {
				return redacted, err
			}
			redacted = redacted || r
		}
		return redacted, nil
	})
}

// RedactDomain redacts a domain.
func (e *Engine) RedactDomain(ctx context.Context, requester Requester, d *domain.Domain) (bool, error) {
	return e.run(ctx, requester, domain.KindDomain.Slug(), 1, func(w *walker) (bool, error) {
		return e.schemas.redactDomain(w, d)
	})
}

// RedactEntity redacts an entity.
func (e *Engine) RedactEntity(ctx context.Context, requester Requester, ent *domain.Entity) (bool, error) {
	return e.run(ctx, requester, domain.KindEntity.Slug(), 1, func(w *walker) (bool, error) {
		return e.schemas.redactEntity(w, ent)
	})
}

// RedactNameserver redacts a nameserver.
func (e *Engine) RedactNameserver(ctx context.Context, requester Requester, n *domain.Nameserver) (bool, error) {
	return e.run(ctx, requester, domain.KindNameserver.Slug(), 1, func(w *walker) (bool, error) {
		return e.schemas.redactNameserver(w, n)
	})
}

// RedactAutnum redacts an autnum.
func (e *Engine) RedactAutnum(ctx context.Context, requester Requester, a *domain.Autnum) (bool, error) {
	return e.run(ctx, requester, domain.KindAutnum.Slug(), 1, func(w *walker) (bool, error) {
		return e.schemas.redactAutnum(w, a)
	})
}

// RedactIPNetwork redacts an IP network.
func (e *Engine) RedactIPNetwork(ctx context.Context, requester Requester, n *domain.IPNetwork) (bool, error) {
	return e.run(ctx, requester, domain.KindIPNetwork.Slug(), 1, func(w *walker) (bool, error) {
		return e.schemas.redactIPNetwork(w, n)
	})
}

func (e *Engine) run(ctx context.Context, requester Requester, kind string, objects int, fn func(*walker) (bool, error)) (bool, error) {
	ctx, span := e.tracer.Start(ctx, "redact."+kind, trace.WithAttributes(
		attribute.String("rdap.kind", kind),
		attribute.Bool("rdap.authenticated", requester.Authenticated),
	))
	defer span.End()

	start := time.Now()
	// One snapshot for the whole response.
	tables := e.tables.Current()
	if tables != nil {
		telemetry.RecordPolicySnapshot(span, tables.Generation(), len(tables.Types()))
	}

	w := &walker{
		ctx:       ctx,
		tables:    tables,
		requester: requester,
		owners:    e.owners,
	}
	redacted, err := fn(w)
	duration := time.Since(start)

	if err != nil {
		var missing *policy.MissingPolicyError
		if errors.As(err, &missing) {
			telemetry.RecordMissingPolicy(span, missing.ObjectType, missing.Field)
			e.logger.Error().
				Str("object_type", missing.ObjectType).
				Str("field", missing.Field).
				Msg("Field has no privacy level configured")
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, "redaction failed")
		}
		telemetry.RecordRedaction(ctx, telemetry.RedactionMetrics{Kind: kind, Failed: true, Duration: duration})
		return false, err
	}

	var generation int64
	if tables != nil {
		generation = tables.Generation()
	}
	telemetry.RecordRedactionEvent(span, kind, objects, redacted, generation)
	telemetry.RecordRedaction(ctx, telemetry.RedactionMetrics{
		Kind:     kind,
		Objects:  objects,
		Redacted: redacted,
		Duration: duration,
	})

	e.logger.Debug().
		Str("kind", kind).
		Int("objects", objects).
		Int("visited", w.visited).
		Bool("redacted", redacted).
		Msg("Redaction complete")

	return redacted, nil
}
