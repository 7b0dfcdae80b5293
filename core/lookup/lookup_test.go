package lookup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/observo/core"
)

type stubSource struct {
	page    Page
	err     error
	gotKind Kind
	gotQ    Query
}

func (s *stubSource) Fetch(_ context.Context, kind Kind, q Query) (Page, error) {
	s.gotKind, s.gotQ = kind, q
	return s.page, s.err
}

func TestNormalizeRecord(t *testing.T) {
	tests := []struct {
		name   string
		rec    Record
		want   Option
		wantOk bool
	}{
		{name: "mongo id + name", rec: Record{"_id": "s1", "name": "Lincoln High"}, want: Option{"s1", "Lincoln High"}, wantOk: true},
		{name: "numeric id + title", rec: Record{"id": float64(42), "title": " Room 4 "}, want: Option{"42", "Room 4"}, wantOk: true},
		{name: "_id wins over id", rec: Record{"_id": "a", "id": "b", "name": "A"}, want: Option{"a", "A"}, wantOk: true},
		{name: "first + last name", rec: Record{"_id": "u1", "first_name": "Ada", "last_name": "Lovelace"}, want: Option{"u1", "Ada Lovelace"}, wantOk: true},
		{name: "first name only", rec: Record{"_id": "u2", "first_name": "Ada"}, want: Option{"u2", "Ada"}, wantOk: true},
		{name: "email fallback", rec: Record{"_id": "u3", "email": "ada@test.test"}, want: Option{"u3", "ada@test.test"}, wantOk: true},
		{name: "id fallback", rec: Record{"_id": "x"}, want: Option{"x", "x"}, wantOk: true},
		{name: "no id", rec: Record{"name": "orphan"}},
		{name: "blank id", rec: Record{"_id": "  ", "name": "blank"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeRecord(tt.rec)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" Schools ")
	assert.NoError(t, err)
	assert.Equal(t, KindSchools, kind)

	_, err = ParseKind("planets")
	assert.Equal(t, ErrUnknownKind, err)
}

func TestParentKey(t *testing.T) {
	assert.Equal(t, "school_id", ParentKey(KindClassrooms))
	assert.Equal(t, "network_id", ParentKey(KindSchools))
	assert.Equal(t, "district_id", ParentKey(KindUsers))
	assert.Equal(t, "", ParentKey(KindDistricts))
}

func TestRequiresParent(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindClassrooms, true},
		{KindSchools, false},
		{KindUsers, false},
		{KindNetworks, false},
		{KindDistricts, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, RequiresParent(tt.kind))
		})
	}
}

func TestQuery_Clean(t *testing.T) {
	q := Query{Search: "  lin ", SortBy: "name", SortOrder: "DESC", Parent: " n1 "}
	q.Clean(50)
	assert.Equal(t, Query{Page: 1, PerPage: 50, Search: "lin", SortBy: "name", SortOrder: "desc", Parent: "n1"}, q)

	q = Query{Page: 3, PerPage: 10, SortOrder: "desc"}
	q.Clean(50)
	assert.Equal(t, Query{Page: 3, PerPage: 10}, q)
}

func TestProvider_Options(t *testing.T) {
	t.Run("normalizes and sorts", func(t *testing.T) {
		src := &stubSource{page: Page{Records: []Record{
			{"_id": "s2", "name": "west high"},
			{"_id": "s1", "name": "East High"},
			{"name": "no id"},
		}}}
		p := NewProvider(src, core.NopLogger{}, 25)

		opts := p.Options(context.Background(), KindSchools, Query{Parent: "n1"})
		assert.Equal(t, []Option{{"s1", "East High"}, {"s2", "west high"}}, opts)
		assert.Equal(t, KindSchools, src.gotKind)
		assert.Equal(t, 25, src.gotQ.PerPage)
		assert.Equal(t, "n1", src.gotQ.Parent)
	})

	t.Run("keeps source order when sorted remotely", func(t *testing.T) {
		src := &stubSource{page: Page{Records: []Record{{"_id": "b", "name": "B"}, {"_id": "a", "name": "A"}}}}
		p := NewProvider(src, core.NopLogger{}, 25)

		opts := p.Options(context.Background(), KindSchools, Query{SortBy: "name", SortOrder: "desc"})
		assert.Equal(t, []Option{{"b", "B"}, {"a", "A"}}, opts)
	})

	t.Run("degrades to an empty list", func(t *testing.T) {
		src := &stubSource{err: errors.New("backend down")}
		p := NewProvider(src, core.NopLogger{}, 0)

		opts := p.Options(context.Background(), KindUsers, Query{})
		assert.NotNil(t, opts)
		assert.Empty(t, opts)
		assert.Equal(t, 100, src.gotQ.PerPage)
	})
}
