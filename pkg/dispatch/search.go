package dispatch

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pcarana/rdap-server/pkg/domain"
	"github.com/pcarana/rdap-server/pkg/storage"
)

// searchParam binds a query parameter to the field it searches.
type searchParam struct {
	name  string
	field storage.SearchField
}

// parsePattern validates a search pattern. Only a single trailing '*' is
// allowed, and the literal part must be at least minLength characters.
func parsePattern(kind domain.Kind, field storage.SearchField, raw string, minLength int) (string, error) {
	raw = strings.TrimSpace(raw)
	literal, prefix := strings.CutSuffix(raw, "*")
	if strings.Contains(literal, "*") {
		return "", domain.InvalidValuef("only a trailing '*' wildcard is supported")
	}
	if utf8.RuneCountInString(literal) < minLength {
		return "", domain.InvalidValuef("search pattern must have at least %d characters besides the wildcard", minLength)
	}

	if field == storage.FieldName && (kind == domain.KindDomain || kind == domain.KindNameserver) {
		ascii, err := toASCII(literal)
		if err != nil && !prefix {
			return "", err
		}
		if err == nil {
			literal = ascii
		}
	}

	if prefix {
		return literal + "*", nil
	}
	return literal, nil
}

// search answers a search request. The store is asked for one record more
// than the requester may receive so truncation can be reported.
func (h *Handler) search(kind domain.Kind, params ...searchParam) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := h.startSpan(r, "rdap.search."+kind.Slug(), kind)
		defer span.End()
		logger := h.requestLogger(r, kind)

		if h.disabled[kind] {
			h.fail(w, r, span, logger, domain.NotImplementedf("%s searches are not supported by this server", kind))
			return
		}

		var selected *searchParam
		var raw string
		query := r.URL.Query()
		for i := range params {
			if query.Has(params[i].name) {
				if selected != nil {
					h.fail(w, r, span, logger, domain.InvalidValuef("only one search parameter may be given"))
					return
				}
				selected, raw = &params[i], query.Get(params[i].name)
			}
		}
		if selected == nil {
			names := make([]string, 0, len(params))
			for _, p := range params {
				names = append(names, p.name)
			}
			h.fail(w, r, span, logger, domain.InvalidValuef("missing search parameter, expected one of: %s", strings.Join(names, ", ")))
			return
		}

		pattern, err := parsePattern(kind, selected.field, raw, h.cfg.MinSearchPatternLength)
		if err != nil {
			h.fail(w, r, span, logger, err)
			return
		}

		requester := requesterFrom(ctx)
		limit := h.cfg.MaxResultsUnauthenticated
		if requester.Authenticated {
			limit = h.cfg.MaxResultsAuthenticated
		}

		objs, err := h.store.Search(ctx, storage.Query{
			Kind:    kind,
			Field:   selected.field,
			Pattern: pattern,
			Limit:   limit + 1,
		})
		if err != nil {
			h.fail(w, r, span, logger, err)
			return
		}

		truncated := len(objs) > limit
		if truncated {
			objs = objs[:limit]
		}

		for _, obj := range objs {
			obj.ApplyDefaults("", h.cfg.Port43)
		}
		redacted, err := h.redactor.RedactAll(ctx, requester, objs)
		if err != nil {
			h.fail(w, r, span, logger, err)
			return
		}

		resp := SearchResponse{
			Header:  domain.Header{Conformance: []string{domain.ConformanceLevel}},
			Kind:    kind,
			Lang:    h.cfg.Language,
			Results: objs,
		}
		if truncated {
			resp.Notices = append(resp.Notices, truncatedNotice(h.truncationReason(requester.Authenticated)))
		}
		if redacted {
			resp.Notices = append(resp.Notices, redactedNotice())
		}

		span.SetAttributes(
			attribute.Int("rdap.results", len(objs)),
			attribute.Bool("rdap.truncated", truncated),
		)

		if err := h.render(w, r, resp); err != nil {
			h.fail(w, r, span, logger, err)
			return
		}

		logger.Debug().
			Str("parameter", selected.name).
			Int("results", len(objs)).
			Bool("truncated", truncated).
			Dur("duration", time.Since(start)).
			Msg("Search served")
	}
}

// truncationReason tells anonymous requesters when signing in would have
// returned more results.
func (h *Handler) truncationReason(authenticated bool) string {
	if !authenticated && h.cfg.MaxResultsAuthenticated > h.cfg.MaxResultsUnauthenticated {
		return NoticeResultsAuthorization
	}
	return NoticeResultsUnexplainable
}

// help describes the queries this server answers.
func (h *Handler) help(w http.ResponseWriter, r *http.Request) {
	notice := domain.Notice{
		Title: "RDAP Help",
		Description: []string{
			"Lookups: /domain/<name>, /nameserver/<name>, /entity/<handle>, /autnum/<number>, /ip/<address>[/<length>].",
			"Searches: /domains?name=<pattern>, /nameservers?name=<pattern>, /entities?fn=<pattern> or /entities?handle=<pattern>.",
			"Search patterns may end in '*' and need at least the configured minimum number of other characters.",
		},
	}
	if h.cfg.BaseURL != "" {
		self := strings.TrimSuffix(h.cfg.BaseURL, "/") + "/help"
		notice.Links = []domain.Link{{Value: self, Rel: "self", Href: self, Type: "application/rdap+json"}}
	}

	resp := HelpResponse{
		Header: domain.Header{
			Conformance: []string{domain.ConformanceLevel},
			Notices:     []domain.Notice{notice},
		},
		Lang: h.cfg.Language,
	}

	if err := h.render(w, r, resp); err != nil {
		h.logger.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Help rendering failed")
		writeError(w, r, StatusFor(err), err)
	}
}
