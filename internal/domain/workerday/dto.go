package workerday

import (
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/validator"
)

type OverrideRequest struct {
	WorkerDayID string  `json:"-"`
	Start       *string `json:"dttm_start"`
	End         *string `json:"dttm_end"`
	Reason      string  `json:"reason"`

	StartTime *time.Time `json:"-"`
	EndTime   *time.Time `json:"-"`
}

func (r *OverrideRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.WorkerDayID) {
		errs.Add("id", "id must be a valid UUID")
	}
	if r.Start == nil && r.End == nil {
		errs.Add("dttm_start", "at least one of dttm_start, dttm_end is required")
	}
	if r.Start != nil {
		if t, ok := validator.IsValidDateTime(*r.Start); ok {
			r.StartTime = &t
		} else {
			errs.Add("dttm_start", "dttm_start must be an RFC3339 timestamp")
		}
	}
	if r.End != nil {
		if t, ok := validator.IsValidDateTime(*r.End); ok {
			r.EndTime = &t
		} else {
			errs.Add("dttm_end", "dttm_end must be an RFC3339 timestamp")
		}
	}
	if r.StartTime != nil && r.EndTime != nil && r.EndTime.Before(*r.StartTime) {
		errs.Add("dttm_end", "dttm_end must not be before dttm_start")
	}
	if validator.IsEmpty(r.Reason) {
		errs.Add("reason", "reason is required")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type WorkerDayResponse struct {
	ID            string     `json:"id"`
	EmployeeID    *string    `json:"employee_id"`
	ShopID        string     `json:"shop_id"`
	BusinessDate  string     `json:"dt"`
	Start         *time.Time `json:"dttm_start"`
	End           *time.Time `json:"dttm_end"`
	IsFact        bool       `json:"is_fact"`
	IsApproved    bool       `json:"is_approved"`
	PlanID        *string    `json:"plan_id"`
	SuspiciousGap bool       `json:"suspicious_gap"`
	DayHours      float64    `json:"day_hours"`
	NightHours    float64    `json:"night_hours"`
	Revision      int        `json:"revision"`
}

func NewWorkerDayResponse(wd WorkerDay) WorkerDayResponse {
	return WorkerDayResponse{
		ID:            wd.ID,
		EmployeeID:    wd.EmployeeID,
		ShopID:        wd.ShopID,
		BusinessDate:  wd.BusinessDate.Format("2006-01-02"),
		Start:         wd.Start,
		End:           wd.End,
		IsFact:        wd.IsFact,
		IsApproved:    wd.IsApproved,
		PlanID:        wd.PlanID,
		SuspiciousGap: wd.SuspiciousGap,
		DayHours:      wd.DayHours,
		NightHours:    wd.NightHours,
		Revision:      wd.Revision,
	}
}
