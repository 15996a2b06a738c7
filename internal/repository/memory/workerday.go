package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type workerDayRepository struct{ s *Store }

func (s *Store) WorkerDays() workerday.WorkerDayRepository { return workerDayRepository{s} }

func (r workerDayRepository) GetByID(ctx context.Context, id string) (workerday.WorkerDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wd, ok := r.s.data.workerDays[id]
	if !ok {
		return workerday.WorkerDay{}, workerday.ErrWorkerDayNotFound
	}
	return wd, nil
}

func (r workerDayRepository) ListApprovedPlans(ctx context.Context, employeeID string, from, to time.Time) ([]workerday.WorkerDay, error) {
	return r.filter("workerday.ListApprovedPlans", func(wd workerday.WorkerDay) bool {
		return wd.IsPlan && wd.IsApproved && !wd.IsVacancy && wd.Employee() == employeeID &&
			!wd.BusinessDate.Before(from) && !wd.BusinessDate.After(to)
	})
}

func (r workerDayRepository) HasApprovedPlan(ctx context.Context, employeeID, shopID string, date time.Time) (bool, error) {
	plans, err := r.filter("workerday.HasApprovedPlan", func(wd workerday.WorkerDay) bool {
		return wd.IsPlan && wd.IsApproved && !wd.IsVacancy && wd.Employee() == employeeID &&
			wd.ShopID == shopID && wd.BusinessDate.Equal(date)
	})
	return len(plans) > 0, err
}

func (r workerDayRepository) GetFactForUpdate(ctx context.Context, employeeID string, date time.Time) (workerday.WorkerDay, error) {
	facts, err := r.filter("workerday.GetFactForUpdate", func(wd workerday.WorkerDay) bool {
		return wd.IsFact && wd.IsApproved && wd.Employee() == employeeID && wd.BusinessDate.Equal(date)
	})
	if err != nil {
		return workerday.WorkerDay{}, err
	}
	if len(facts) == 0 {
		return workerday.WorkerDay{}, workerday.ErrWorkerDayNotFound
	}
	return facts[0], nil
}

func (r workerDayRepository) CreateFact(ctx context.Context, wd workerday.WorkerDay) (workerday.WorkerDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("workerday.CreateFact"); err != nil {
		return workerday.WorkerDay{}, err
	}
	for _, other := range r.s.data.workerDays {
		if other.IsFact && other.IsApproved && other.Employee() == wd.Employee() && other.BusinessDate.Equal(wd.BusinessDate) {
			return workerday.WorkerDay{}, database.ErrConflict
		}
	}
	if wd.ID == "" {
		wd.ID = uuid.NewString()
	}
	now := r.s.now()
	wd.CreatedAt, wd.UpdatedAt = now, now
	r.s.data.workerDays[wd.ID] = wd
	return wd, nil
}

func (r workerDayRepository) UpdateFact(ctx context.Context, wd workerday.WorkerDay) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("workerday.UpdateFact"); err != nil {
		return err
	}
	old, ok := r.s.data.workerDays[wd.ID]
	if !ok || !old.IsFact {
		return workerday.ErrWorkerDayNotFound
	}
	wd.CreatedAt = old.CreatedAt
	wd.UpdatedAt = r.s.now()
	r.s.data.workerDays[wd.ID] = wd
	return nil
}

func (r workerDayRepository) ListPlansOverlapping(ctx context.Context, shopID string, from, to time.Time) ([]workerday.WorkerDay, error) {
	return r.filter("workerday.ListPlansOverlapping", func(wd workerday.WorkerDay) bool {
		return wd.IsPlan && wd.IsApproved && wd.ShopID == shopID && overlaps(wd.Start, wd.End, from, to)
	})
}

func (r workerDayRepository) ListFactsOverlapping(ctx context.Context, shopID string, from, to time.Time) ([]workerday.WorkerDay, error) {
	return r.filter("workerday.ListFactsOverlapping", func(wd workerday.WorkerDay) bool {
		return wd.IsFact && wd.IsApproved && wd.ShopID == shopID && overlaps(wd.Start, wd.End, from, to)
	})
}

func (r workerDayRepository) ListEmployeePlans(ctx context.Context, employeeID string, from, to time.Time) ([]workerday.WorkerDay, error) {
	return r.filter("workerday.ListEmployeePlans", func(wd workerday.WorkerDay) bool {
		if wd.IsVacancy && (wd.VacancyState == nil || *wd.VacancyState == string(vacancy.StateCancelled)) {
			return false
		}
		return wd.IsPlan && wd.IsApproved && wd.Employee() == employeeID && overlaps(wd.Start, wd.End, from, to)
	})
}

func (r workerDayRepository) DeletePlan(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("workerday.DeletePlan"); err != nil {
		return err
	}
	wd, ok := r.s.data.workerDays[id]
	if !ok || !wd.IsPlan || !wd.IsApproved || wd.IsVacancy {
		return workerday.ErrWorkerDayNotFound
	}
	delete(r.s.data.workerDays, id)
	for k, other := range r.s.data.workerDays {
		if other.PlanID != nil && *other.PlanID == id {
			other.PlanID = nil
			r.s.data.workerDays[k] = other
		}
	}
	return nil
}

func (r workerDayRepository) ListStaleOpenFacts(ctx context.Context, cutoff time.Time, limit int) ([]workerday.OpenFact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []workerday.OpenFact
	for _, wd := range r.s.data.workerDays {
		if !wd.IsOpen() || wd.SuspiciousGap || wd.PlanID == nil {
			continue
		}
		plan, ok := r.s.data.workerDays[*wd.PlanID]
		if !ok || plan.End == nil || !plan.End.Before(cutoff) {
			continue
		}
		out = append(out, workerday.OpenFact{WorkerDay: wd, PlanEnd: *plan.End})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanEnd.Before(out[j].PlanEnd) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r workerDayRepository) MarkSuspicious(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wd, ok := r.s.data.workerDays[id]
	if !ok {
		return workerday.ErrWorkerDayNotFound
	}
	wd.SuspiciousGap = true
	wd.UpdatedAt = r.s.now()
	r.s.data.workerDays[id] = wd
	return nil
}

func (r workerDayRepository) CreateOverride(ctx context.Context, o workerday.Override) (workerday.Override, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.data.overrides {
		if other.WorkerDayID == o.WorkerDayID && other.Revision == o.Revision {
			return workerday.Override{}, database.ErrConflict
		}
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = r.s.now()
	r.s.data.overrides = append(r.s.data.overrides, o)
	return o, nil
}

func (r workerDayRepository) GetLatestOverride(ctx context.Context, workerDayID string) (*workerday.Override, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *workerday.Override
	for i := range r.s.data.overrides {
		o := r.s.data.overrides[i]
		if o.WorkerDayID == workerDayID && (latest == nil || o.Revision > latest.Revision) {
			latest = &o
		}
	}
	return latest, nil
}

func (r workerDayRepository) filter(op string, keep func(workerday.WorkerDay) bool) ([]workerday.WorkerDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check(op); err != nil {
		return nil, err
	}
	var out []workerday.WorkerDay
	for _, wd := range r.s.data.workerDays {
		if keep(wd) {
			out = append(out, wd)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != nil && out[j].Start != nil && !out[i].Start.Equal(*out[j].Start) {
			return out[i].Start.Before(*out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type vacancyRepository struct{ s *Store }

func (s *Store) Vacancies() vacancy.VacancyRepository { return vacancyRepository{s} }

func toVacancy(wd workerday.WorkerDay) vacancy.Vacancy {
	v := vacancy.Vacancy{
		ID:           wd.ID,
		ShopID:       wd.ShopID,
		BusinessDate: wd.BusinessDate,
		EmployeeID:   wd.EmployeeID,
		CreatedAt:    wd.CreatedAt,
		UpdatedAt:    wd.UpdatedAt,
	}
	if wd.Start != nil {
		v.Start = *wd.Start
	}
	if wd.End != nil {
		v.End = *wd.End
	}
	if wd.VacancyState != nil {
		v.State = vacancy.State(*wd.VacancyState)
	}
	if len(wd.Details) > 0 {
		v.WorkTypeID = wd.Details[0].WorkTypeID
	}
	return v
}

func fromVacancy(v vacancy.Vacancy) workerday.WorkerDay {
	start, end := v.Start, v.End
	state := string(v.State)
	return workerday.WorkerDay{
		ID:           v.ID,
		EmployeeID:   v.EmployeeID,
		ShopID:       v.ShopID,
		BusinessDate: v.BusinessDate,
		Kind:         workerday.KindWorkday,
		Start:        &start,
		End:          &end,
		IsPlan:       true,
		IsApproved:   true,
		IsVacancy:    true,
		VacancyState: &state,
		Details:      []workerday.Detail{{WorkTypeID: v.WorkTypeID, Start: start, End: end}},
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

// AddVacancy stores v as a vacancy worker day.
func (s *Store) AddVacancy(v vacancy.Vacancy) {
	s.AddWorkerDay(fromVacancy(v))
}

// ListVacancies returns every vacancy ordered by start.
func (s *Store) ListVacancies() []vacancy.Vacancy {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []vacancy.Vacancy
	for _, wd := range s.data.workerDays {
		if wd.IsVacancy {
			out = append(out, toVacancy(wd))
		}
	}
	sortVacancies(out)
	return out
}

func sortVacancies(v []vacancy.Vacancy) {
	sort.Slice(v, func(i, j int) bool {
		if !v[i].Start.Equal(v[j].Start) {
			return v[i].Start.Before(v[j].Start)
		}
		return v[i].ID < v[j].ID
	})
}

func (r vacancyRepository) GetForUpdate(ctx context.Context, id string) (vacancy.Vacancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wd, ok := r.s.data.workerDays[id]
	if !ok || !wd.IsVacancy {
		return vacancy.Vacancy{}, vacancy.ErrVacancyNotFound
	}
	return r.withProposal(toVacancy(wd)), nil
}

// withProposal attaches the recorded proposal. Callers hold s.mu.
func (r vacancyRepository) withProposal(v vacancy.Vacancy) vacancy.Vacancy {
	if emp, ok := r.s.data.proposals[v.ID]; ok {
		v.ProposedEmployeeID = &emp
	}
	return v
}

func (r vacancyRepository) ListByPartition(ctx context.Context, shopID, workTypeID string, from, to time.Time) ([]vacancy.Vacancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("vacancy.ListByPartition"); err != nil {
		return nil, err
	}
	var out []vacancy.Vacancy
	for _, wd := range r.s.data.workerDays {
		if !wd.IsVacancy || wd.ShopID != shopID {
			continue
		}
		v := toVacancy(wd)
		if v.WorkTypeID == workTypeID && v.Overlaps(from, to) {
			out = append(out, r.withProposal(v))
		}
	}
	sortVacancies(out)
	return out, nil
}

func (r vacancyRepository) HasOpen(ctx context.Context, shopID string, date time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, wd := range r.s.data.workerDays {
		if wd.IsVacancy && wd.ShopID == shopID && wd.BusinessDate.Equal(date) &&
			wd.VacancyState != nil && *wd.VacancyState == string(vacancy.StateOpen) {
			return true, nil
		}
	}
	return false, nil
}

func (r vacancyRepository) Create(ctx context.Context, v vacancy.Vacancy) (vacancy.Vacancy, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("vacancy.Create"); err != nil {
		return vacancy.Vacancy{}, err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := r.s.now()
	v.CreatedAt, v.UpdatedAt = now, now
	r.s.data.workerDays[v.ID] = fromVacancy(v)
	return v, nil
}

func (r vacancyRepository) UpdateInterval(ctx context.Context, id string, start, end time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("vacancy.UpdateInterval"); err != nil {
		return err
	}
	wd, ok := r.s.data.workerDays[id]
	if !ok || !wd.IsVacancy {
		return vacancy.ErrVacancyNotFound
	}
	v := toVacancy(wd)
	v.Start, v.End = start, end
	v.UpdatedAt = r.s.now()
	r.s.data.workerDays[id] = fromVacancy(v)
	return nil
}

func (r vacancyRepository) UpdateState(ctx context.Context, v vacancy.Vacancy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("vacancy.UpdateState"); err != nil {
		return err
	}
	wd, ok := r.s.data.workerDays[v.ID]
	if !ok || !wd.IsVacancy {
		return vacancy.ErrVacancyNotFound
	}
	if v.EmployeeID != nil {
		for _, other := range r.s.data.workerDays {
			if other.ID != v.ID && other.IsPlan && other.IsApproved && other.Employee() == *v.EmployeeID &&
				other.BusinessDate.Equal(wd.BusinessDate) {
				return database.ErrConflict
			}
		}
	}
	cur := toVacancy(wd)
	cur.State = v.State
	cur.EmployeeID = v.EmployeeID
	cur.UpdatedAt = r.s.now()
	r.s.data.workerDays[v.ID] = fromVacancy(cur)
	return nil
}

func (r vacancyRepository) SetProposal(ctx context.Context, id, employeeID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("vacancy.SetProposal"); err != nil {
		return err
	}
	wd, ok := r.s.data.workerDays[id]
	if !ok || !wd.IsVacancy {
		return vacancy.ErrVacancyNotFound
	}
	r.s.data.proposals[id] = employeeID
	return nil
}
