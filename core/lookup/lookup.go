// Package lookup serves the reference lists (schools, classrooms, users...) selections are made from,
// normalized to value/label options.
package lookup

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/observo/core"
)

type Kind string

const (
	KindSchools    Kind = "schools"
	KindClassrooms Kind = "classrooms"
	KindUsers      Kind = "users"
	KindNetworks   Kind = "networks"
	KindDistricts  Kind = "districts"
)

var (
	AllKinds = []Kind{KindSchools, KindClassrooms, KindUsers, KindNetworks, KindDistricts}

	ErrUnknownKind = errors.New("unknown lookup kind")

	// parentKeys name the query parameter filtering a kind by its parent record.
	parentKeys = map[Kind]string{
		KindClassrooms: "school_id",
		KindSchools:    "network_id",
		KindNetworks:   "district_id",
		KindUsers:      "district_id",
	}

	// scopedKinds are only listed within a parent record: classrooms make no sense across schools.
	scopedKinds = map[Kind]bool{KindClassrooms: true}
)

func ParseKind(s string) (Kind, error) {
	kind := Kind(core.CleanString(s, true /* lower */))
	for _, k := range AllKinds {
		if k == kind {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// ParentKey returns the query parameter filtering `kind` records by parent, "" when the kind has no parent.
func ParentKey(kind Kind) string {
	return parentKeys[kind]
}

// RequiresParent reports whether `kind` options are only listed once their parent record is selected.
func RequiresParent(kind Kind) bool {
	return scopedKinds[kind]
}

type (
	// Option is a selectable reference record.
	Option struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}

	// Query are the list parameters understood by the backend.
	Query struct {
		Page      int    `query:"curr_page"`
		PerPage   int    `query:"per_page"`
		Search    string `query:"search"`
		SortBy    string `query:"sort_by"`
		SortOrder string `query:"sort_order"` // asc | desc
		Archived  *bool  `query:"archived"`
		Parent    string `query:"parent"` // id of the parent record, see ParentKey
	}

	// Record is a raw backend record.
	Record map[string]interface{}

	Page struct {
		Records []Record
		Total   int
		Page    int
		Pages   int
	}

	// Source fetches raw pages of reference records.
	Source interface {
		Fetch(ctx context.Context, kind Kind, q Query) (Page, error)
	}
)

// Clean normalizes the query, filling in defaults.
func (q *Query) Clean(defaultPerPage int) {
	q.Search = core.CleanString(q.Search)
	q.SortBy = core.CleanString(q.SortBy)
	q.SortOrder = core.CleanString(q.SortOrder, true /* lower */)
	q.Parent = core.CleanString(q.Parent)
	if q.SortOrder != "desc" {
		q.SortOrder = "asc"
	}
	if q.SortBy == "" {
		q.SortOrder = ""
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
}

// Provider serves options from a Source.
type Provider struct {
	source  Source
	logger  core.Logger
	perPage int
}

func NewProvider(source Source, logger core.Logger, perPage int) *Provider {
	if perPage < 1 {
		perPage = 100
	}
	return &Provider{source: source, logger: logger, perPage: perPage}
}

// Options returns the `kind` options matching `q`, sorted by label unless the query sorts them.
// Lookups never fail: errors are logged and an empty list is returned.
func (p *Provider) Options(ctx context.Context, kind Kind, q Query) []Option {
	q.Clean(p.perPage)
	page, err := p.source.Fetch(ctx, kind, q)
	if err != nil {
		p.logger.Warn("fetching options", err, map[string]interface{}{"kind": kind, "query": q})
		return []Option{}
	}
	opts := Normalize(page.Records)
	if q.SortBy == "" {
		SortByLabel(opts)
	}
	return opts
}

// Normalize turns raw records into options, dropping records without an id.
// Records without a usable label are labelled with their id.
func Normalize(records []Record) []Option {
	opts := make([]Option, 0, len(records))
	for _, rec := range records {
		if opt, ok := NormalizeRecord(rec); ok {
			opts = append(opts, opt)
		}
	}
	return opts
}

func NormalizeRecord(rec Record) (Option, bool) {
	value := rec.str("_id")
	if value == "" {
		value = rec.str("id")
	}
	if value == "" {
		return Option{}, false
	}
	return Option{Value: value, Label: rec.label(value)}, true
}

func (r Record) label(fallback string) string {
	for _, key := range []string{"name", "title"} {
		if s := r.str(key); s != "" {
			return s
		}
	}
	if full := core.CleanString(r.str("first_name") + " " + r.str("last_name")); full != "" {
		return full
	}
	if s := r.str("email"); s != "" {
		return s
	}
	return fallback
}

func (r Record) str(key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

// SortByLabel sorts options alphabetically, case-insensitively.
func SortByLabel(opts []Option) {
	sort.SliceStable(opts, func(i, j int) bool {
		return strings.ToLower(opts[i].Label) < strings.ToLower(opts[j].Label)
	})
}
