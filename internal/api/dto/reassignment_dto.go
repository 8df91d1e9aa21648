package dto

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ReassignRequest payload for bulk supervisor changes. A nil supervisor email
// clears the supervisor for every listed employee.
type ReassignRequest struct {
	EmployeeEmails     []string `json:"employee_emails" validate:"required,min=1"`
	NewSupervisorEmail *string  `json:"new_supervisor_email" validate:"omitempty"`
}

// Ok runs structural validation and reports field failures. Per-address email
// checks stay in the reassignment service so their positions survive into the
// error details.
func (r *ReassignRequest) Ok() (map[string]string, bool) {
	errs := validate.Struct(r)
	if errs == nil {
		return nil, true
	}
	fields := make(map[string]string)
	if validatorErrs, ok := errs.(validator.ValidationErrors); ok {
		for _, fieldErr := range validatorErrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	return fields, false
}

// ReassignResponse reports the outcome of a bulk supervisor change.
type ReassignResponse struct {
	AffectedCount int            `json:"affected_count"`
	Supervisor    *UserResponse  `json:"supervisor"`
	Targets       []UserResponse `json:"targets"`
}
