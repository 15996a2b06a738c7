package vacancy

import (
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/validator"
)

type AssignRequest struct {
	VacancyID  string `json:"-"`
	EmployeeID string `json:"employee_id"`

	// DonorPlanID is the plan the employee gives up to take the vacancy.
	DonorPlanID string `json:"donor_plan_id"`
}

func (r *AssignRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsValidUUID(r.VacancyID) {
		errs.Add("id", "id must be a valid UUID")
	}
	if !validator.IsValidUUID(r.EmployeeID) {
		errs.Add("employee_id", "employee_id must be a valid UUID")
	}
	if r.DonorPlanID != "" && !validator.IsValidUUID(r.DonorPlanID) {
		errs.Add("donor_plan_id", "donor_plan_id must be a valid UUID")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RunRequest struct {
	ShopID string  `json:"shop_id"`
	At     *string `json:"at"`

	AtTime time.Time `json:"-"`
}

func (r *RunRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsValidUUID(r.ShopID) {
		errs.Add("shop_id", "shop_id must be a valid UUID")
	}
	if r.At != nil {
		if t, ok := validator.IsValidDateTime(*r.At); ok {
			r.AtTime = t
		} else {
			errs.Add("at", "at must be an RFC3339 timestamp")
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type VacancyResponse struct {
	ID         string    `json:"id"`
	ShopID     string    `json:"shop_id"`
	WorkTypeID string    `json:"work_type_id"`
	Date       string    `json:"dt"`
	Start      time.Time `json:"dttm_start"`
	End        time.Time `json:"dttm_end"`
	State      State     `json:"state"`
	EmployeeID *string   `json:"employee_id"`
}

func NewVacancyResponse(v Vacancy) VacancyResponse {
	return VacancyResponse{
		ID:         v.ID,
		ShopID:     v.ShopID,
		WorkTypeID: v.WorkTypeID,
		Date:       v.BusinessDate.Format("2006-01-02"),
		Start:      v.Start,
		End:        v.End,
		State:      v.State,
		EmployeeID: v.EmployeeID,
	}
}

type ActionResponse struct {
	Kind        ActionKind `json:"kind"`
	VacancyID   string     `json:"vacancy_id,omitempty"`
	WorkTypeID  string     `json:"work_type_id"`
	Start       time.Time  `json:"dttm_start"`
	End         time.Time  `json:"dttm_end"`
	EmployeeID  string     `json:"employee_id,omitempty"`
	DonorShopID string     `json:"donor_shop_id,omitempty"`
}

type RunResponse struct {
	ShopID     string           `json:"shop_id"`
	Partitions int              `json:"partitions"`
	Failed     int              `json:"failed"`
	Actions    []ActionResponse `json:"actions"`
}

func NewActionResponse(a Action) ActionResponse {
	return ActionResponse{
		Kind:        a.Kind,
		VacancyID:   a.VacancyID,
		WorkTypeID:  a.WorkTypeID,
		Start:       a.Start,
		End:         a.End,
		EmployeeID:  a.EmployeeID,
		DonorShopID: a.DonorShopID,
	}
}

type ListRequest struct {
	ShopID     string `json:"shop_id"`
	WorkTypeID string `json:"work_type_id"`
	From       string `json:"from"`
	To         string `json:"to"`

	FromTime time.Time `json:"-"`
	ToTime   time.Time `json:"-"`
}

func (r *ListRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsValidUUID(r.ShopID) {
		errs.Add("shop_id", "shop_id must be a valid UUID")
	}
	if !validator.IsValidUUID(r.WorkTypeID) {
		errs.Add("work_type_id", "work_type_id must be a valid UUID")
	}
	from, okFrom := validator.IsValidDateTime(r.From)
	if !okFrom {
		errs.Add("from", "from must be an RFC3339 timestamp")
	}
	to, okTo := validator.IsValidDateTime(r.To)
	if !okTo {
		errs.Add("to", "to must be an RFC3339 timestamp")
	}
	if okFrom && okTo && !to.After(from) {
		errs.Add("to", "to must be after from")
	}
	if len(errs) > 0 {
		return errs
	}
	r.FromTime, r.ToTime = from, to
	return nil
}
