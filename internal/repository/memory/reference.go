package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
)

type networkRepository struct{ s *Store }

func (s *Store) Networks() network.NetworkRepository { return networkRepository{s} }

func (r networkRepository) GetByID(ctx context.Context, id string) (network.Network, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("network.GetByID"); err != nil {
		return network.Network{}, err
	}
	n, ok := r.s.data.networks[id]
	if !ok {
		return network.Network{}, network.ErrNetworkNotFound
	}
	return n, nil
}

func (r networkRepository) List(ctx context.Context) ([]network.Network, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]network.Network, 0, len(r.s.data.networks))
	for _, n := range r.s.data.networks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type shopRepository struct{ s *Store }

func (s *Store) Shops() shop.ShopRepository { return shopRepository{s} }

func (r shopRepository) GetByID(ctx context.Context, id string) (shop.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("shop.GetByID"); err != nil {
		return shop.Shop{}, err
	}
	sh, ok := r.s.data.shops[id]
	if !ok {
		return shop.Shop{}, shop.ErrShopNotFound
	}
	return sh, nil
}

func (r shopRepository) GetByCode(ctx context.Context, networkID, code string) (shop.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sh := range r.s.data.shops {
		if sh.Code == code && (networkID == "" || sh.NetworkID == networkID) {
			return sh, nil
		}
	}
	return shop.Shop{}, shop.ErrShopNotFound
}

func (r shopRepository) GetByURVZone(ctx context.Context, zone string) (shop.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sh := range r.s.data.shops {
		if sh.URVZone != nil && *sh.URVZone == zone {
			return sh, nil
		}
	}
	return shop.Shop{}, shop.ErrShopNotFound
}

func (r shopRepository) ListByNetwork(ctx context.Context, networkID string) ([]shop.Shop, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []shop.Shop
	for _, sh := range r.s.data.shops {
		if sh.NetworkID == networkID {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type workTypeRepository struct{ s *Store }

func (s *Store) WorkTypes() shop.WorkTypeRepository { return workTypeRepository{s} }

func (r workTypeRepository) GetByID(ctx context.Context, id string) (shop.WorkType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wt, ok := r.s.data.workTypes[id]
	if !ok {
		return shop.WorkType{}, shop.ErrWorkTypeNotFound
	}
	return wt, nil
}

func (r workTypeRepository) ListByShop(ctx context.Context, shopID string) ([]shop.WorkType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []shop.WorkType
	for _, wt := range r.s.data.workTypes {
		if wt.ShopID == shopID {
			out = append(out, wt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r workTypeRepository) FindByName(ctx context.Context, shopID, name string) (shop.WorkType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, wt := range r.s.data.workTypes {
		if wt.ShopID == shopID && wt.Name == name {
			return wt, nil
		}
	}
	return shop.WorkType{}, shop.ErrWorkTypeNotFound
}

type terminalRepository struct{ s *Store }

func (s *Store) Terminals() shop.TerminalRepository { return terminalRepository{s} }

func (r terminalRepository) GetByID(ctx context.Context, id string) (shop.Terminal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.terminals[id]
	if !ok {
		return shop.Terminal{}, shop.ErrTerminalNotFound
	}
	return t, nil
}

type employeeRepository struct{ s *Store }

func (s *Store) Employees() employee.EmployeeRepository { return employeeRepository{s} }

func (r employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r employeeRepository) GetMostRecentForUser(ctx context.Context, userID string) (employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var (
		best     employee.Employee
		bestHire time.Time
		found    bool
	)
	for _, e := range r.s.data.employees {
		if e.UserID != userID {
			continue
		}
		hire := time.Time{}
		for _, em := range r.s.data.employments {
			if em.EmployeeID == e.ID && em.HireDate.After(hire) {
				hire = em.HireDate
			}
		}
		if !found || hire.After(bestHire) || (hire.Equal(bestHire) && e.ID > best.ID) {
			best, bestHire, found = e, hire, true
		}
	}
	if !found {
		return employee.Employee{}, employee.ErrNoEmployeeForUser
	}
	return best, nil
}

func (r employeeRepository) GetByBiometricsPartnerID(ctx context.Context, partnerID string) (employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.data.employees {
		if e.BiometricsPartnerID != nil && *e.BiometricsPartnerID == partnerID {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r employeeRepository) GetByURVPin(ctx context.Context, pin string) (employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.data.employees {
		if e.URVPin != nil && *e.URVPin == pin {
			return e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (r employeeRepository) SetBiometricsPartnerID(ctx context.Context, id string, partnerID *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.data.employees[id]
	if !ok {
		return employee.ErrEmployeeNotFound
	}
	e.BiometricsPartnerID = partnerID
	e.UpdatedAt = r.s.now()
	r.s.data.employees[id] = e
	return nil
}

type employmentRepository struct{ s *Store }

func (s *Store) Employments() employee.EmploymentRepository { return employmentRepository{s} }

func (r employmentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]employee.Employment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []employee.Employment
	for _, e := range r.s.data.employments {
		if e.EmployeeID == employeeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r employmentRepository) ListActiveByShop(ctx context.Context, shopID string, date time.Time) ([]employee.Employment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.check("employment.ListActiveByShop"); err != nil {
		return nil, err
	}
	var out []employee.Employment
	for _, e := range r.s.data.employments {
		if e.ShopID == shopID && e.IsActiveOn(date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r employmentRepository) GetConstraints(ctx context.Context, employeeID string) (employee.Constraints, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.constraints[employeeID]
	if !ok {
		return employee.Constraints{EmployeeID: employeeID}, nil
	}
	return c, nil
}
