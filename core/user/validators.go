package user

import (
	"sort"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/observo/core"
)

var (
	anyRoleTag  = "anyrole"
	anyRoleText = "invalid role"

	rolePriorityTag  = "roleprio"
	rolePriorityText = "you cannot create a user with a role above your own"
)

// step views: the draft fields each step owns, with their validation rules
type (
	profileStep struct {
		FirstName string `json:"first_name" validate:"required,max=50"`
		LastName  string `json:"last_name" validate:"required,max=50"`
		Email     string `json:"email" validate:"required,email"`
	}

	placementStep struct {
		Role     string   `json:"role" validate:"picked=a_role,anyrole"`
		District string   `json:"district" validate:"picked=a_district"`
		Network  string   `json:"network"`
		Schools  []string `json:"schools"`

		creatorRoles []string
	}
)

func (d *Draft) profile() profileStep {
	return profileStep{FirstName: d.FirstName, LastName: d.LastName, Email: d.Email}
}

func (d *Draft) placement() placementStep {
	return placementStep{
		Role:         d.Role,
		District:     d.District,
		Network:      d.Network,
		Schools:      d.Schools,
		creatorRoles: d.creatorRoles,
	}
}

// InitValidators registers the user validators; core.InitValidators must have been called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(anyRoleTag, anyRoleValidation)
	core.RegisterCustomTranslation(validate, translator, anyRoleTag, anyRoleText)

	validate.RegisterStructValidation(placementStructValidation, placementStep{})
	core.RegisterCustomTranslation(validate, translator, rolePriorityTag, rolePriorityText)
}

// Custom Validators

// anyRoleValidation checks that the role is in AllRoles
func anyRoleValidation(fl validator.FieldLevel) bool {
	role, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	roles := append([]string{}, AllRoles...)
	sort.Strings(roles)
	idx := sort.SearchStrings(roles, role)
	return idx < len(roles) && roles[idx] == role
}

// placementStructValidation checks what the role needs:
// - the creator's own roles rank at least as high
// - network roles and school roles need a network
// - school roles need at least one school
func placementStructValidation(sl validator.StructLevel) {
	ps, ok := sl.Current().Interface().(placementStep)
	if !ok || !core.ContainsString(AllRoles, ps.Role) {
		return
	}

	if RolePriority(ps.Role) > MaxRolePriority(ps.creatorRoles) {
		sl.ReportError(ps.Role, "role", "Role", rolePriorityTag, "")
		return
	}
	needsNetwork := core.ContainsString(NetworkRoles, ps.Role) || core.ContainsString(SchoolRoles, ps.Role)
	if needsNetwork && ps.Network == "" {
		sl.ReportError(ps.Network, "network", "Network", core.PickedTag, "a_network")
	}
	if core.ContainsString(SchoolRoles, ps.Role) && len(ps.Schools) == 0 {
		sl.ReportError(ps.Schools, "schools", "Schools", core.PickedTag, "at_least_one_school")
	}
}
