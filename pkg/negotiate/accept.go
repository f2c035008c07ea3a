package negotiate

import (
	"mime"
	"sort"
	"strconv"
	"strings"
)

// MediaRange is one acceptable entry of an Accept header.
type MediaRange struct {
	Type    string
	Subtype string
	Quality float64
	Params  map[string]string
	// Index is the entry's position in the header.
	Index int
}

func (m MediaRange) String() string {
	return m.Type + "/" + m.Subtype
}

// Specificity ranks exact types above type/* above */*.
func (m MediaRange) Specificity() int {
	switch {
	case m.Type == "*":
		return 0
	case m.Subtype == "*":
		return 1
	default:
		return 2
	}
}

// ParseAccept parses header into media ranges ordered by preference.
// Malformed entries and entries with q=0 are skipped.
func ParseAccept(header string) []MediaRange {
	var ranges []MediaRange
	for i, entry := range strings.Split(header, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		mr, ok := parseRange(entry)
		if !ok || mr.Quality == 0 {
			continue
		}
		mr.Index = i
		ranges = append(ranges, mr)
	}
	Sort(ranges)
	return ranges
}

func parseRange(entry string) (MediaRange, bool) {
	mediaType, params, err := mime.ParseMediaType(entry)
	if err != nil {
		return MediaRange{}, false
	}

	typ, subtype, found := strings.Cut(mediaType, "/")
	if !found || typ == "" || subtype == "" || strings.Contains(subtype, "/") {
		return MediaRange{}, false
	}
	if typ == "*" && subtype != "*" {
		return MediaRange{}, false
	}

	mr := MediaRange{Type: typ, Subtype: subtype, Quality: 1}
	if q, ok := params["q"]; ok {
		quality, err := strconv.ParseFloat(q, 64)
		if err != nil || quality < 0 || quality > 1 {
			return MediaRange{}, false
		}
		mr.Quality = quality
		delete(params, "q")
	}
	if len(params) > 0 {
		mr.Params = params
	}
	return mr, true
}

// Sort orders ranges by quality, then specificity, then header position.
func Sort(ranges []MediaRange) {
	sort.SliceStable(ranges, func(i, j int) bool {
		a, b := ranges[i], ranges[j]
		if a.Quality != b.Quality {
			return a.Quality > b.Quality
		}
		if a.Specificity() != b.Specificity() {
			return a.Specificity() > b.Specificity()
		}
		return a.Index < b.Index
	})
}
