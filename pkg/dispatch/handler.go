package dispatch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pcarana/rdap-server/pkg/auth"
	"github.com/pcarana/rdap-server/pkg/domain"
	"github.com/pcarana/rdap-server/pkg/negotiate"
	"github.com/pcarana/rdap-server/pkg/policy"
	"github.com/pcarana/rdap-server/pkg/redact"
	"github.com/pcarana/rdap-server/pkg/storage"
	"github.com/pcarana/rdap-server/pkg/telemetry"
)

// Redactor removes what a requester may not see.
type Redactor interface {
	Redact(ctx context.Context, requester redact.Requester, obj domain.Object) (bool, error)
	RedactAll(ctx context.Context, requester redact.Requester, objs []domain.Object) (bool, error)
}

// Config holds the server-wide response settings.
type Config struct {
	// Language fills lang when a record has none.
	Language string
	// Port43 fills port43 when a record has none.
	Port43 string
	// BaseURL prefixes self links in help responses.
	BaseURL string
	// Zones served; empty serves every zone.
	Zones                     []string
	MinSearchPatternLength    int
	MaxResultsAuthenticated   int
	MaxResultsUnauthenticated int
	// DisabledKinds are answered with 501.
	DisabledKinds []domain.Kind
}

// Handler serves the public RDAP routes.
type Handler struct {
	store     storage.RecordStore
	redactor  Redactor
	renderers *negotiate.Registry
	ids       Identifiers
	cfg       Config
	disabled  map[domain.Kind]bool
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewHandler wires the pipeline collaborators. A nil registry uses
// negotiate.DefaultRegistry.
func NewHandler(store storage.RecordStore, redactor Redactor, renderers *negotiate.Registry, cfg Config, logger zerolog.Logger) *Handler {
	if renderers == nil {
		renderers = negotiate.DefaultRegistry()
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.MinSearchPatternLength <= 0 {
		cfg.MinSearchPatternLength = 5
	}
	if cfg.MaxResultsAuthenticated <= 0 {
		cfg.MaxResultsAuthenticated = 20
	}
	if cfg.MaxResultsUnauthenticated <= 0 {
		cfg.MaxResultsUnauthenticated = 10
	}

	disabled := make(map[domain.Kind]bool, len(cfg.DisabledKinds))
	for _, kind := range cfg.DisabledKinds {
		disabled[kind] = true
	}

	return &Handler{
		store:     store,
		redactor:  redactor,
		renderers: renderers,
		ids:       Identifiers{Zones: NormalizeZones(cfg.Zones)},
		cfg:       cfg,
		disabled:  disabled,
		logger:    logger.With().Str("component", "dispatch").Logger(),
		tracer:    otel.Tracer("github.com/pcarana/rdap-server/pkg/dispatch"),
	}
}

// Register mounts the RDAP routes on r.
func (h *Handler) Register(r chi.Router) {
	h.lookupRoute(r, "/domain/{name}", domain.KindDomain, func(r *http.Request) (string, error) {
		return h.ids.Domain(chi.URLParam(r, "name"))
	})
	h.lookupRoute(r, "/nameserver/{name}", domain.KindNameserver, func(r *http.Request) (string, error) {
		return h.ids.Nameserver(chi.URLParam(r, "name"))
	})
	h.lookupRoute(r, "/entity/{handle}", domain.KindEntity, func(r *http.Request) (string, error) {
		return h.ids.Entity(chi.URLParam(r, "handle"))
	})
	h.lookupRoute(r, "/autnum/{asn}", domain.KindAutnum, func(r *http.Request) (string, error) {
		return h.ids.Autnum(chi.URLParam(r, "asn"))
	})
	h.lookupRoute(r, "/ip/{address}", domain.KindIPNetwork, func(r *http.Request) (string, error) {
		return h.ids.IP(chi.URLParam(r, "address"), "")
	})
	h.lookupRoute(r, "/ip/{address}/{length}", domain.KindIPNetwork, func(r *http.Request) (string, error) {
		return h.ids.IP(chi.URLParam(r, "address"), chi.URLParam(r, "length"))
	})

	r.Get("/domains", h.search(domain.KindDomain, searchParam{"name", storage.FieldName}))
	r.Get("/nameservers", h.search(domain.KindNameserver, searchParam{"name", storage.FieldName}))
	r.Get("/entities", h.search(domain.KindEntity, searchParam{"fn", storage.FieldName}, searchParam{"handle", storage.FieldHandle}))
	r.Get("/help", h.help)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, nil)
	})
}

// Routes returns the public router. The given middlewares run after request
// ID assignment, client address resolution and panic recovery, in order.
func (h *Handler) Routes(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middlewares...)
	h.Register(r)
	return r
}

func (h *Handler) lookupRoute(r chi.Router, pattern string, kind domain.Kind, parse func(*http.Request) (string, error)) {
	handler := h.lookup(kind, parse)
	r.Get(pattern, handler)
	r.Head(pattern, handler)
}

func requesterFrom(ctx context.Context) redact.Requester {
	id := auth.FromContext(ctx)
	return redact.Requester{Username: id.Username, Authenticated: id.Authenticated()}
}

func (h *Handler) requestLogger(r *http.Request, kind domain.Kind) zerolog.Logger {
	return h.logger.With().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("kind", kind.String()).
		Str("method", r.Method).
		Logger()
}

func (h *Handler) startSpan(r *http.Request, name string, kind domain.Kind) (context.Context, trace.Span) {
	ctx, span := h.tracer.Start(r.Context(), name)

	attrs := []attribute.KeyValue{
		attribute.String("rdap.kind", kind.String()),
		attribute.String("http.request.method", r.Method),
	}
	if authz := r.Header.Get("Authorization"); authz != "" {
		attrs = append(attrs, attribute.String("http.request.header.authorization", authz))
	}
	if id := auth.FromContext(ctx); id.Authenticated() {
		attrs = append(attrs, attribute.String("enduser.id", id.Username))
	}
	span.SetAttributes(telemetry.ScrubAttributes(attrs, "enduser.id")...)
	return ctx, span
}

// lookup runs parse → fetch → redact → negotiate → render. HEAD requests
// stop after an existence check.
func (h *Handler) lookup(kind domain.Kind, parse func(*http.Request) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := h.startSpan(r, "rdap.lookup."+kind.Slug(), kind)
		defer span.End()
		logger := h.requestLogger(r, kind)

		if h.disabled[kind] {
			h.fail(w, r, span, logger, domain.NotImplementedf("%s lookups are not supported by this server", kind))
			return
		}

		key, err := parse(r)
		if err != nil {
			h.fail(w, r, span, logger, err)
			return
		}
		span.SetAttributes(attribute.String("rdap.key", key))

		if r.Method == http.MethodHead {
			ok, err := h.store.Exists(ctx, kind, key)
			if err != nil {
				h.fail(w, r, span, logger, err)
				return
			}
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		obj, err := h.store.Get(ctx, kind, key)
		if err != nil {
			h.fail(w, r, span, logger, err)
			return
		}

		obj.ApplyDefaults(h.cfg.Language, h.cfg.Port43)
		redacted, err := h.redactor.Redact(ctx, requesterFrom(ctx), obj)
		if err != nil {
			h.fail(w, r, span, logger, err)
			return
		}

		header := obj.ResponseHeader()
		header.Conformance = []string{domain.ConformanceLevel}
		if redacted {
			header.Notices = append(header.Notices, redactedNotice())
		}

		if err := h.render(w, r, obj); err != nil {
			h.fail(w, r, span, logger, err)
			return
		}

		logger.Debug().
			Str("key", key).
			Bool("redacted", redacted).
			Dur("duration", time.Since(start)).
			Msg("Lookup served")
	}
}

// render writes v with the renderer negotiated from the Accept header. The
// body is produced before any header is sent so a render failure can still
// become an error response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, v any) error {
	renderer := h.renderers.Select(r.Header.Get("Accept"))

	var buf bytes.Buffer
	if err := renderer.Render(&buf, v); err != nil {
		return err
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, span trace.Span, logger zerolog.Logger, err error) {
	status := StatusFor(err)
	span.SetAttributes(attribute.Int("http.response.status_code", status))

	var missing *policy.MissingPolicyError
	var renderErr *negotiate.RenderError
	switch {
	case errors.As(err, &missing):
		span.SetStatus(codes.Error, "missing policy")
		logger.Error().
			Str("object_type", missing.ObjectType).
			Str("field", missing.Field).
			Msg("Field has no privacy policy configured")
	case errors.As(err, &renderErr):
		span.SetStatus(codes.Error, "render failed")
		logger.Error().Err(err).Str("content_type", renderErr.ContentType).Msg("Response rendering failed")
	case status >= http.StatusInternalServerError && status != http.StatusNotImplemented:
		span.SetStatus(codes.Error, "request failed")
		logger.Error().Err(err).Msg("Request failed")
	default:
		logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	writeError(w, r, status, err)
}
