package user

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
	"github.com/trezcool/observo/core/lookup"
)

var (
	testValidate   *validator.Validate
	testTranslator ut.Translator

	districtAdmin = core.Actor{ID: "a1", Name: "Ada", Email: "ada@test.test", District: "d1", Roles: []string{RoleDistrictAdmin}}
	schoolAdmin   = core.Actor{ID: "a2", Name: "Alan", District: "d1", Roles: []string{RoleSchoolAdmin}}
)

func init() {
	testValidate = validator.New()
	testTranslator = core.NewTranslator()
	core.InitValidators(testValidate, testTranslator)
	InitValidators(testValidate, testTranslator)
}

func TestMaxRolePriority(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{name: "none"},
		{name: "teacher", roles: []string{RoleTeacher}, want: 1},
		{name: "highest wins", roles: []string{RoleTeacher, RoleNetworkAdmin, RoleObserver}, want: 24},
		{name: "unknown", roles: []string{"janitor:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxRolePriority(tt.roles); got != tt.want {
				t.Errorf("MaxRolePriority() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfileStep(t *testing.T) {
	tests := []struct {
		name       string
		draft      Draft
		wantErrors []core.FieldError
	}{
		{name: "valid", draft: Draft{FirstName: "Grace", LastName: "Hopper", Email: "grace@test.test"}},
		{
			name:  "invalid email",
			draft: Draft{FirstName: "Grace", LastName: "Hopper", Email: "grace"},
			wantErrors: []core.FieldError{
				{Field: "email", Error: "email must be a valid email address"},
			},
		},
		{
			name: "missing",
			wantErrors: []core.FieldError{
				{Field: "first_name", Error: "this field is required"},
				{Field: "last_name", Error: "this field is required"},
				{Field: "email", Error: "this field is required"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testValidate.Struct(tt.draft.profile())
			flds, _ := core.FieldErrors(err, testTranslator)
			assert.Equal(t, tt.wantErrors, flds)
		})
	}
}

func TestPlacementStep(t *testing.T) {
	tests := []struct {
		name       string
		creator    core.Actor
		draft      Draft
		wantErrors []core.FieldError
	}{
		{
			name:    "teacher",
			creator: districtAdmin,
			draft:   Draft{Role: RoleTeacher, District: "d1", Network: "n1", Schools: []string{"s1"}},
		},
		{
			name:    "district admin needs no network",
			creator: districtAdmin,
			draft:   Draft{Role: RoleDistrictAdmin, District: "d1"},
		},
		{
			name:    "school role without placement",
			creator: districtAdmin,
			draft:   Draft{Role: RoleObserver, District: "d1"},
			wantErrors: []core.FieldError{
				{Field: "network", Error: "Please select a network"},
				{Field: "schools", Error: "Please select at least one school"},
			},
		},
		{
			name:    "network admin without network",
			creator: districtAdmin,
			draft:   Draft{Role: RoleNetworkAdmin, District: "d1"},
			wantErrors: []core.FieldError{
				{Field: "network", Error: "Please select a network"},
			},
		},
		{
			name:    "role above the creator's",
			creator: schoolAdmin,
			draft:   Draft{Role: RoleNetworkAdmin, District: "d1", Network: "n1"},
			wantErrors: []core.FieldError{
				{Field: "role", Error: rolePriorityText},
			},
		},
		{
			name:    "unknown role",
			creator: districtAdmin,
			draft:   Draft{Role: "janitor:", District: "d1"},
			wantErrors: []core.FieldError{
				{Field: "role", Error: anyRoleText},
			},
		},
		{
			name:    "nothing picked",
			creator: districtAdmin,
			wantErrors: []core.FieldError{
				{Field: "role", Error: "Please select a role"},
				{Field: "district", Error: "Please select a district"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.draft
			d.creatorRoles = tt.creator.Roles
			err := testValidate.Struct(d.placement())
			flds, _ := core.FieldErrors(err, testTranslator)
			assert.Equal(t, tt.wantErrors, flds)
		})
	}
}

func TestApplyPatch(t *testing.T) {
	d := NewDraft(districtAdmin, "d1", "n1")
	require.NoError(t, ApplyPatch(d, []byte(`{"first_name": " Grace ", "email": "Grace@Test.test", "schools": ["s1", "s1"]}`)))
	assert.Equal(t, "Grace", d.FirstName)
	assert.Equal(t, "grace@test.test", d.Email)
	assert.Equal(t, []string{"s1"}, d.Schools)

	require.NoError(t, ApplyPatch(d, []byte(`{"network": "n2"}`)))
	assert.Equal(t, "n2", d.Network)
	assert.Equal(t, []string{}, d.Schools)

	err := ApplyPatch(d, []byte(`{"password": "secret"}`))
	require.Error(t, err)
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok)
}

func TestNewPayload(t *testing.T) {
	d := &Draft{FirstName: "Grace", LastName: "Hopper", Email: "g@test.test", District: "d1", Network: "n1", Schools: []string{"s1"}}

	d.Role = RoleTeacher
	assert.Equal(t, Payload{
		FirstName: "Grace", LastName: "Hopper", Email: "g@test.test", Role: RoleTeacher,
		District: "d1", Network: "n1", Schools: []string{"s1"},
	}, NewPayload(d))

	d.Role = RoleDistrictAdmin
	assert.Equal(t, Payload{
		FirstName: "Grace", LastName: "Hopper", Email: "g@test.test", Role: RoleDistrictAdmin,
		District: "d1", Schools: []string{},
	}, NewPayload(d))
}

type stubSink struct {
	got []flow.Submission
}

func (s *stubSink) Send(_ context.Context, sub flow.Submission) (flow.Receipt, error) {
	s.got = append(s.got, sub)
	return flow.Receipt{ID: "u-9"}, nil
}

func TestFlow(t *testing.T) {
	sink := &stubSink{}
	f := NewFactory(testValidate, flow.Deps{Sink: sink, Translator: testTranslator})

	_, err := f.Start(core.Actor{ID: "t1", Roles: []string{RoleTeacher}}, flow.StartParams{})
	assert.Equal(t, ErrNotAllowed, err)

	inst, err := f.Start(districtAdmin, flow.StartParams{})
	require.NoError(t, err)
	assert.Equal(t, "d1", inst.LookupParent(lookup.KindNetworks))

	advanced, flds, err := inst.Next(StepProfile)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.Len(t, flds, 3)

	require.NoError(t, inst.Apply([]byte(`{"first_name": "Grace", "last_name": "Hopper", "email": "grace@test.test"}`)))
	advanced, _, err = inst.Next(StepProfile)
	require.NoError(t, err)
	require.True(t, advanced)

	require.NoError(t, inst.Apply([]byte(`{"role": "observer:", "network": "n1", "schools": ["s1"]}`)))
	assert.Equal(t, "n1", inst.LookupParent(lookup.KindSchools))
	advanced, flds, err = inst.Next(StepPlacement)
	require.NoError(t, err)
	require.True(t, advanced, "%v", flds)

	inst.Remember(lookup.KindSchools, []lookup.Option{{Value: "s1", Label: "Lincoln High"}})
	review, err := inst.Review()
	require.NoError(t, err)
	assert.Equal(t, Review{
		Name:     "Grace Hopper",
		Email:    "grace@test.test",
		Role:     Role{Name: "Observer", Value: RoleObserver},
		District: lookup.Option{Value: "d1", Label: "d1"},
		Network:  lookup.Option{Value: "n1", Label: "n1"},
		Schools:  []lookup.Option{{Value: "s1", Label: "Lincoln High"}},
	}, review)

	receipt, err := inst.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ListPath, receipt.Redirect)
	require.Len(t, sink.got, 1)
	assert.Equal(t, Kind, sink.got[0].Kind)
	assert.Equal(t, RoleObserver, sink.got[0].Payload.(Payload).Role)
}
