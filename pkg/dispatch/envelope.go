package dispatch

import (
	"encoding/json"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// RFC 9083 §10.2.1 notice and remark types.
const (
	NoticeObjectRedacted       = "object truncated due to authorization"
	NoticeResultsAuthorization = "result set truncated due to authorization"
	NoticeResultsUnexplainable = "result set truncated due to unexplainable reasons"
	redactedNoticeTitle        = "Authorization"
	redactedNoticeDescription  = "Some of the data in this object has been removed."
	truncatedNoticeTitle       = "Search results truncated"
	truncatedNoticeDescription = "The number of results exceeds the maximum this server returns for the request."
)

func redactedNotice() domain.Notice {
	return domain.Notice{
		Title:       redactedNoticeTitle,
		Type:        NoticeObjectRedacted,
		Description: []string{redactedNoticeDescription},
	}
}

func truncatedNotice(reason string) domain.Notice {
	return domain.Notice{
		Title:       truncatedNoticeTitle,
		Type:        reason,
		Description: []string{truncatedNoticeDescription},
	}
}

// searchMembers names the result array of each searchable kind.
var searchMembers = map[domain.Kind]string{
	domain.KindDomain:     "domainSearchResults",
	domain.KindNameserver: "nameserverSearchResults",
	domain.KindEntity:     "entitySearchResults",
}

// SearchResponse is the body of a search. The results are rendered under the
// member name of their kind.
type SearchResponse struct {
	domain.Header
	Kind    domain.Kind
	Lang    string
	Results []domain.Object
}

// MarshalJSON implements json.Marshaler.
func (s SearchResponse) MarshalJSON() ([]byte, error) {
	results := s.Results
	if results == nil {
		results = []domain.Object{}
	}
	body := map[string]any{
		searchMembers[s.Kind]: results,
	}
	if len(s.Conformance) > 0 {
		body["rdapConformance"] = s.Conformance
	}
	if len(s.Notices) > 0 {
		body["notices"] = s.Notices
	}
	if s.Lang != "" {
		body["lang"] = s.Lang
	}
	return json.Marshal(body)
}

// HelpResponse is the body of /help.
type HelpResponse struct {
	domain.Header
	Lang string `json:"lang,omitempty"`
}
