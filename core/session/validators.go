package session

import (
	"reflect"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/observo/core"
)

var (
	clockTag  = "clock"
	clockText = "Time must be in hh:mm AM/PM format"

	clockAfterTag  = "clockafter"
	clockAfterText = "End time must be after start time"

	adminMemberTag = "adminmember"
)

// step views: the draft fields each step owns, with their validation rules
type (
	dateTimeStep struct {
		Date      *time.Time `json:"date" validate:"picked=a_date"`
		StartTime string     `json:"start_time" validate:"picked=a_start_time,clock"`
		EndTime   string     `json:"end_time" validate:"picked=an_end_time,clock,clockafter=StartTime"`
	}

	placementStep struct {
		School     string   `json:"school" validate:"picked=a_school"`
		Classrooms []string `json:"classrooms" validate:"picked=at_least_one_classroom"`
	}

	assignmentStep struct {
		Users        []string `json:"users" validate:"picked=at_least_one_user"`
		SessionAdmin string   `json:"session_admin" validate:"picked=a_session_admin,adminmember=Users"`
	}
)

func (d *Draft) dateTime() dateTimeStep {
	return dateTimeStep{Date: d.Date, StartTime: d.StartTime, EndTime: d.EndTime}
}

func (d *Draft) placement() placementStep {
	return placementStep{School: d.School, Classrooms: d.Classrooms}
}

func (d *Draft) assignment() assignmentStep {
	return assignmentStep{Users: d.Users, SessionAdmin: d.SessionAdmin}
}

// InitValidators registers the session validators; core.InitValidators must have been called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(clockTag, clockValidation)
	core.RegisterCustomTranslation(validate, translator, clockTag, clockText)

	_ = validate.RegisterValidation(clockAfterTag, clockAfterValidation)
	core.RegisterCustomTranslation(validate, translator, clockAfterTag, clockAfterText)

	_ = validate.RegisterValidation(adminMemberTag, adminMemberValidation)
	core.RegisterCustomTranslation(validate, translator, adminMemberTag, adminMemberText)
}

// Custom Validators

func clockValidation(fl validator.FieldLevel) bool {
	_, err := ParseClock(fl.Field().String())
	return err == nil
}

// clockAfterValidation checks that the field is a later time of day than the sibling field named by the param.
// It passes when either time is invalid: clock reports those.
func clockAfterValidation(fl validator.FieldLevel) bool {
	other := siblingField(fl)
	if other.Kind() != reflect.String {
		return false
	}
	end, err := ParseClock(fl.Field().String())
	if err != nil {
		return true
	}
	start, err := ParseClock(other.String())
	if err != nil {
		return true
	}
	return end > start
}

// adminMemberValidation checks that the field is one of the ids of the sibling slice named by the param.
func adminMemberValidation(fl validator.FieldLevel) bool {
	other := siblingField(fl)
	if !other.IsValid() {
		return false
	}
	ids, ok := other.Interface().([]string)
	if !ok {
		return false
	}
	return core.ContainsString(ids, fl.Field().String())
}

func siblingField(fl validator.FieldLevel) reflect.Value {
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return parent.FieldByName(fl.Param())
}
