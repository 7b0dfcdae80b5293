// Package user is the user creation flow: profile, role & placement, then review.
package user

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/observo/core"
)

// Roles
const (
	// Admin
	RoleAdmin         = "admin:"
	RoleDistrictAdmin = "admin:district"
	RoleNetworkAdmin  = "admin:network"
	RoleSchoolAdmin   = "admin:school"

	// Observer
	RoleObserver = "observer:"

	// Teacher
	RoleTeacher = "teacher:"
)

var (
	AdminRoles    = []string{RoleAdmin, RoleDistrictAdmin, RoleNetworkAdmin, RoleSchoolAdmin}
	ObserverRoles = []string{RoleObserver}
	TeacherRoles  = []string{RoleTeacher}
	AllRoles      = getAllRoles()

	// roles bound to a network, and roles bound to schools
	NetworkRoles = []string{RoleNetworkAdmin}
	SchoolRoles  = []string{RoleSchoolAdmin, RoleObserver, RoleTeacher}

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdmin:         30,
		RoleDistrictAdmin: 27,
		RoleNetworkAdmin:  24,
		RoleSchoolAdmin:   21,

		// Observers: 20 - 11
		RoleObserver: 11,

		// Teachers: 10 - 1
		RoleTeacher: 1,
	}

	Roles = []Role{
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Observer", Value: RoleObserver},
		{Name: "School Admin", Value: RoleSchoolAdmin},
		{Name: "Network Admin", Value: RoleNetworkAdmin},
		{Name: "District Admin", Value: RoleDistrictAdmin},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 6)
	all = append(all, AdminRoles...)
	all = append(all, ObserverRoles...)
	all = append(all, TeacherRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// RoleName returns the display name of `role`, or `role` itself when unknown.
func RoleName(role string) string {
	for _, r := range Roles {
		if r.Value == role {
			return r.Name
		}
	}
	return role
}

// IsAdmin reports whether any of `roles` is an admin role.
func IsAdmin(roles []string) bool {
	for _, role := range roles {
		if strings.HasPrefix(role, RoleAdmin) {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Draft is a user being created.
type Draft struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	District  string   `json:"district"`
	Network   string   `json:"network"`
	Schools   []string `json:"schools"`

	creatorRoles []string // roles of the user creating this one
}

func NewDraft(creator core.Actor, district, network string) *Draft {
	return &Draft{
		District:     core.CleanString(district),
		Network:      core.CleanString(network),
		Schools:      []string{},
		creatorRoles: append([]string{}, creator.Roles...),
	}
}

func (d *Draft) Name() string {
	return core.CleanString(d.FirstName + " " + d.LastName)
}

// Patch is a partial update of a Draft: only the fields present are applied.
type Patch struct {
	FirstName *string  `json:"first_name"`
	LastName  *string  `json:"last_name"`
	Email     *string  `json:"email"`
	Role      *string  `json:"role"`
	District  *string  `json:"district"`
	Network   *string  `json:"network"`
	Schools   []string `json:"schools"`
}

// ApplyPatch decodes `raw` as a Patch and applies it to `d`.
// Changing the network clears the schools unless new ones are given along.
func ApplyPatch(d *Draft, raw []byte) error {
	var p Patch
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid draft data"))
	}
	p.Apply(d)
	return nil
}

func (p Patch) Apply(d *Draft) {
	if p.FirstName != nil {
		d.FirstName = core.CleanString(*p.FirstName)
	}
	if p.LastName != nil {
		d.LastName = core.CleanString(*p.LastName)
	}
	if p.Email != nil {
		d.Email = core.CleanString(*p.Email, true /* lower */)
	}
	if p.Role != nil {
		d.Role = core.CleanString(*p.Role, true /* lower */)
	}
	if p.District != nil {
		d.District = core.CleanString(*p.District)
	}
	if p.Network != nil {
		network := core.CleanString(*p.Network)
		if network != d.Network && p.Schools == nil {
			d.Schools = []string{}
		}
		d.Network = network
	}
	if p.Schools != nil {
		d.Schools = core.CleanStrings(p.Schools)
	}
}

// Payload is the body of the backend "create user" request.
type Payload struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	District  string   `json:"district,omitempty"`
	Network   string   `json:"network,omitempty"`
	Schools   []string `json:"schools"`
}

// NewPayload assembles a draft into a Payload, dropping the placement the role does not need.
func NewPayload(d *Draft) Payload {
	p := Payload{
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Email:     d.Email,
		Role:      d.Role,
		District:  d.District,
		Schools:   []string{},
	}
	if core.ContainsString(NetworkRoles, d.Role) || core.ContainsString(SchoolRoles, d.Role) {
		p.Network = d.Network
	}
	if core.ContainsString(SchoolRoles, d.Role) {
		p.Schools = append(p.Schools, d.Schools...)
	}
	return p
}

var ErrNotAllowed = errors.New("only admins can create users")
