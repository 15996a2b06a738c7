package tick

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/outbox"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/principal"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/shop"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/tick"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/vacancy"
	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/workerday"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/biometrics"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/geo"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/wfm-backend-go/internal/service/file"
	"github.com/cmlabs-hris/wfm-backend-go/internal/service/matcher"
	"github.com/cmlabs-hris/wfm-backend-go/internal/service/reconcile"
	"github.com/google/uuid"
)

const (
	minMatchScore     = 0.85
	minLiveness       = 0.5
	maxPhotoBytes     = 10 << 20
	defaultBioTimeout = 5 * time.Second
)

// Recognizer is the part of the face recognition client used by intake.
type Recognizer interface {
	Identify(ctx context.Context, image []byte) (string, error)
	CreatePerson(ctx context.Context, meta map[string]string) (string, error)
	UploadPhoto(ctx context.Context, partnerID string, image []byte) (string, error)
	DetectAndMatch(ctx context.Context, partnerID string, image []byte) (biometrics.Match, error)
}

// Reconciler serializes and applies ticks to fact worker days.
type Reconciler interface {
	Serialize(ctx context.Context, key workerday.Key, fn func(txCtx context.Context) error) error
	Reconcile(txCtx context.Context, in reconcile.Input) (reconcile.Result, error)
}

type TickServiceImpl struct {
	tick.TickRepository
	employee.EmployeeRepository
	employee.EmploymentRepository
	shop.ShopRepository
	network.NetworkRepository
	workerday.WorkerDayRepository
	vacancy.VacancyRepository
	outbox.Publisher
	reconciler Reconciler
	files      file.FileService
	recognizer Recognizer
	bioTimeout time.Duration
	now        func() time.Time
}

func NewTickService(
	tickRepo tick.TickRepository,
	employeeRepo employee.EmployeeRepository,
	employmentRepo employee.EmploymentRepository,
	shopRepo shop.ShopRepository,
	networkRepo network.NetworkRepository,
	workerDayRepo workerday.WorkerDayRepository,
	vacancyRepo vacancy.VacancyRepository,
	publisher outbox.Publisher,
	reconciler Reconciler,
	files file.FileService,
	recognizer Recognizer,
	bioTimeout time.Duration,
) *TickServiceImpl {
	if bioTimeout <= 0 {
		bioTimeout = defaultBioTimeout
	}
	return &TickServiceImpl{
		TickRepository:       tickRepo,
		EmployeeRepository:   employeeRepo,
		EmploymentRepository: employmentRepo,
		ShopRepository:       shopRepo,
		NetworkRepository:    networkRepo,
		WorkerDayRepository:  workerDayRepo,
		VacancyRepository:    vacancyRepo,
		Publisher:            publisher,
		reconciler:           reconciler,
		files:                files,
		recognizer:           recognizer,
		bioTimeout:           bioTimeout,
		now:                  time.Now,
	}
}

// verification is the outcome of the identity check of one tick.
type verification struct {
	verified  bool
	bioCheck  bool
	liveness  *float64
	score     *float64
	reconcile bool
	// duplicateOf is the other employee already enrolled with this face.
	duplicateOf *duplicateFace
}

type duplicateFace struct {
	employeeID string
	partnerID  string
}

// Create implements tick.TickService.
func (s *TickServiceImpl) Create(ctx context.Context, p principal.Principal, req tick.CreateTickRequest) (tick.TickResponse, error) {
	if err := req.Validate(); err != nil {
		return tick.TickResponse{}, err
	}
	if !p.Kind.Valid() {
		return tick.TickResponse{}, tick.Reject(tick.CodeUnauthorized, "unknown principal")
	}

	sh, err := s.resolveShop(ctx, p, req.ShopCode)
	if err != nil {
		return tick.TickResponse{}, err
	}
	net, err := s.NetworkRepository.GetByID(ctx, sh.NetworkID)
	if err != nil {
		return tick.TickResponse{}, fmt.Errorf("failed to load network of shop %s: %w", sh.ID, err)
	}

	dttm := s.now()
	if req.Dttm != nil {
		t, _, ok := validator.ParseLocalDateTime(*req.Dttm, sh.Location())
		if !ok {
			return tick.TickResponse{}, validator.ValidationErrors{{Field: "dttm", Message: "dttm must be an ISO-8601 timestamp"}}
		}
		dttm = t
	}
	dttm = dttm.UTC().Truncate(time.Second)
	date := sh.BusinessDate(dttm)

	photo, err := readPhoto(req)
	if err != nil {
		return tick.TickResponse{}, err
	}

	emp, err := s.resolveEmployee(ctx, p, req.EmployeeID, photo)
	if err != nil {
		return tick.TickResponse{}, err
	}
	if emp.NetworkID != sh.NetworkID {
		return tick.TickResponse{}, tick.Reject(tick.CodeInvalidShop, "employee belongs to another network")
	}

	geoChecked, err := checkGeo(p, net, sh, req.Lat, req.Lon)
	if err != nil {
		return tick.TickResponse{}, err
	}

	var openVacancy *bool
	hasOpenVacancy := func() (bool, error) {
		if openVacancy == nil {
			ok, err := s.VacancyRepository.HasOpen(ctx, sh.ID, date)
			if err != nil {
				return false, fmt.Errorf("failed to check open vacancies: %w", err)
			}
			openVacancy = &ok
		}
		return *openVacancy, nil
	}

	if net.RequireActiveEmployment {
		if err := s.checkEmployment(ctx, emp.ID, sh.ID, date, hasOpenVacancy); err != nil {
			return tick.TickResponse{}, err
		}
	}

	plans, err := s.WorkerDayRepository.ListApprovedPlans(ctx, emp.ID, date.AddDate(0, 0, -1), date.AddDate(0, 0, 1))
	if err != nil {
		return tick.TickResponse{}, fmt.Errorf("failed to list plans: %w", err)
	}
	verdict := matcher.Match(dttm, req.ResolvedKind, shopPlans(plans, sh.ID), matcher.SettingsFrom(net))

	if net.RequireSchedule && verdict.Plan == nil {
		ok, err := s.WorkerDayRepository.HasApprovedPlan(ctx, emp.ID, sh.ID, date)
		if err != nil {
			return tick.TickResponse{}, fmt.Errorf("failed to check schedule: %w", err)
		}
		if !ok {
			return tick.TickResponse{}, tick.Reject(tick.CodeNoScheduledDay, date.Format("2006-01-02"))
		}
	}

	v, err := s.verify(ctx, p, net, emp, photo, geoChecked)
	if err != nil {
		return tick.TickResponse{}, err
	}

	t := tick.Tick{
		ID:              uuid.NewString(),
		EmployeeID:      emp.ID,
		ShopID:          sh.ID,
		Dttm:            dttm,
		BusinessDate:    verdict.BusinessDate(date),
		Kind:            req.ResolvedKind,
		Source:          sourceOf(p, req.Source),
		PrincipalKind:   p.Kind,
		Verified:        v.verified,
		BiometricsCheck: v.bioCheck,
		Liveness:        v.liveness,
		Score:           v.score,
		Latitude:        req.Lat,
		Longitude:       req.Lon,
		Classification:  verdict.Classification,
		ExternalID:      req.ExternalID,
		ReceivedAt:      s.now().UTC(),
	}
	if p.Kind == principal.KindUser {
		t.UserID = &p.UserID
	}
	if verdict.Kind != "" {
		t.Kind = verdict.Kind
	}
	if verdict.Lateness != nil {
		secs := int64(*verdict.Lateness / time.Second)
		t.LatenessSeconds = &secs
	}
	if verdict.Plan != nil {
		t.PlanWorkerDayID = &verdict.Plan.ID
	}

	if len(photo) > 0 && s.files != nil {
		key, err := s.files.UploadTickPhoto(ctx, sh.ID, t.BusinessDate, t.ID, photo)
		if err != nil {
			slog.Warn("Failed to store tick photo", "tick_id", t.ID, "error", err)
		} else {
			t.PhotoKey = &key
		}
	}

	in := reconcile.Input{Tick: t, Verdict: verdict, Network: net, Shop: sh}
	if v.reconcile && verdict.Plan == nil {
		if in.HasOpenVacancy, err = hasOpenVacancy(); err != nil {
			return tick.TickResponse{}, err
		}
	}

	var (
		stored   tick.Tick
		inserted bool
		result   reconcile.Result
	)
	err = s.reconciler.Serialize(ctx, reconcile.KeyFor(in), func(txCtx context.Context) error {
		stored, inserted, err = s.TickRepository.Insert(txCtx, t)
		if err != nil {
			return fmt.Errorf("failed to store tick: %w", err)
		}
		if !inserted {
			return nil
		}
		if d := v.duplicateOf; d != nil {
			err := s.Publisher.Publish(txCtx, outbox.EventDuplicateBiometrics, sh.ID, map[string]any{
				"employee_id":       emp.ID,
				"other_employee_id": d.employeeID,
				"partner_id":        d.partnerID,
				"tick_id":           stored.ID,
			})
			if err != nil {
				return err
			}
		}
		if !v.reconcile {
			return nil
		}

		result, err = s.reconciler.Reconcile(txCtx, in)
		if err != nil {
			return err
		}
		if result.Fact == nil {
			return nil
		}
		stored.FactWorkerDayID = &result.Fact.ID
		return s.TickRepository.AttachFact(txCtx, stored.ID, result.Fact.ID)
	})
	if err != nil {
		s.discardPhoto(ctx, t.PhotoKey)
		return tick.TickResponse{}, err
	}

	resp := tick.NewTickResponse(stored)
	if !inserted {
		s.discardPhoto(ctx, t.PhotoKey)
		slog.Debug("Duplicate tick absorbed", "tick_id", stored.ID, "employee_id", emp.ID, "shop_id", sh.ID)
		resp.Duplicate = true
		return resp, nil
	}
	if result.Fact != nil {
		resp.SuspiciousGap = result.Fact.SuspiciousGap
	}

	slog.Info("Tick accepted",
		"tick_id", stored.ID,
		"employee_id", emp.ID,
		"shop_id", sh.ID,
		"kind", stored.Kind,
		"verified", stored.Verified,
		"match", stored.Classification,
		"action", result.Action,
	)
	return resp, nil
}

func (s *TickServiceImpl) resolveShop(ctx context.Context, p principal.Principal, code string) (shop.Shop, error) {
	if p.ShopBound() {
		sh, err := s.ShopRepository.GetByID(ctx, p.ShopID)
		if err != nil {
			if errors.Is(err, shop.ErrShopNotFound) {
				return shop.Shop{}, tick.Reject(tick.CodeInvalidShop, "terminal shop not found")
			}
			return shop.Shop{}, err
		}
		if code != "" && code != sh.Code {
			return shop.Shop{}, tick.Reject(tick.CodeInvalidShop, "shop_code does not match the terminal")
		}
		return sh, nil
	}

	if code == "" {
		return shop.Shop{}, tick.Reject(tick.CodeInvalidShop, "shop_code is required")
	}
	sh, err := s.ShopRepository.GetByCode(ctx, p.NetworkID, code)
	if err != nil {
		if errors.Is(err, shop.ErrShopNotFound) {
			return shop.Shop{}, tick.Reject(tick.CodeInvalidShop, code)
		}
		return shop.Shop{}, err
	}
	return sh, nil
}

func (s *TickServiceImpl) resolveEmployee(ctx context.Context, p principal.Principal, employeeID *string, photo []byte) (employee.Employee, error) {
	switch {
	case employeeID != nil:
		emp, err := s.EmployeeRepository.GetByID(ctx, *employeeID)
		if err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				return employee.Employee{}, tick.Reject(tick.CodeUnauthorized, "unknown employee")
			}
			return employee.Employee{}, err
		}
		if p.Kind == principal.KindUser && !p.Admin && emp.UserID != p.UserID {
			return employee.Employee{}, tick.Reject(tick.CodeUnauthorized, "employee belongs to another user")
		}
		return emp, nil

	case p.Kind == principal.KindUser:
		emp, err := s.EmployeeRepository.GetMostRecentForUser(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, employee.ErrNoEmployeeForUser) || errors.Is(err, employee.ErrEmployeeNotFound) {
				return employee.Employee{}, tick.Reject(tick.CodeUnauthorized, "user has no employee")
			}
			return employee.Employee{}, err
		}
		return emp, nil

	case len(photo) > 0 && s.recognizer != nil:
		bctx, cancel := context.WithTimeout(ctx, s.bioTimeout)
		defer cancel()
		partnerID, err := s.recognizer.Identify(bctx, photo)
		if err != nil {
			slog.Warn("Face identification failed", "error", err)
			return employee.Employee{}, tick.Reject(tick.CodeBiometricsRetry, "identification unavailable")
		}
		if partnerID == "" {
			return employee.Employee{}, tick.Reject(tick.CodeUnauthorized, "face not recognized")
		}
		emp, err := s.EmployeeRepository.GetByBiometricsPartnerID(ctx, partnerID)
		if err != nil {
			if errors.Is(err, employee.ErrEmployeeNotFound) {
				return employee.Employee{}, tick.Reject(tick.CodeUnauthorized, "face not enrolled")
			}
			return employee.Employee{}, err
		}
		return emp, nil
	}
	return employee.Employee{}, tick.Reject(tick.CodeUnauthorized, "employee could not be resolved")
}

func (s *TickServiceImpl) checkEmployment(ctx context.Context, employeeID, shopID string, date time.Time, hasOpenVacancy func() (bool, error)) error {
	active, err := s.EmploymentRepository.ListActiveByShop(ctx, shopID, date)
	if err != nil {
		return fmt.Errorf("failed to list active employments: %w", err)
	}
	for _, e := range active {
		if e.EmployeeID == employeeID {
			return nil
		}
	}
	ok, err := hasOpenVacancy()
	if err != nil {
		return err
	}
	if !ok {
		return tick.Reject(tick.CodeNoActiveEmployment, date.Format("2006-01-02"))
	}
	return nil
}

// verify decides whether the tick is trusted. Trust mode and system ingestion
// skip recognition; otherwise a photo is matched against the enrolled face.
func (s *TickServiceImpl) verify(ctx context.Context, p principal.Principal, net network.Network, emp employee.Employee, photo []byte, geoChecked bool) (verification, error) {
	one := 1.0
	if net.TrustTickRequest || p.Kind == principal.KindSystem {
		return verification{verified: true, liveness: &one, reconcile: true}, nil
	}
	if len(photo) == 0 || s.recognizer == nil {
		return verification{verified: geoChecked, reconcile: geoChecked}, nil
	}

	bctx, cancel := context.WithTimeout(ctx, s.bioTimeout)
	defer cancel()

	v, err := s.matchFace(bctx, emp, photo)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, biometrics.ErrUnavailable) && !errors.Is(err, context.DeadlineExceeded) {
		return verification{}, err
	}
	slog.Warn("Biometrics unavailable for tick", "employee_id", emp.ID, "strict", net.StrictBiometrics, "error", err)
	if net.StrictBiometrics {
		return verification{}, tick.Reject(tick.CodeBiometricsRetry, tick.ErrBiometricsUnavailable.Error())
	}
	return verification{liveness: &one, reconcile: true}, nil
}

func (s *TickServiceImpl) matchFace(ctx context.Context, emp employee.Employee, photo []byte) (verification, error) {
	if emp.BiometricsPartnerID == nil {
		return s.enroll(ctx, emp, photo)
	}

	m, err := s.recognizer.DetectAndMatch(ctx, *emp.BiometricsPartnerID, photo)
	if errors.Is(err, biometrics.ErrNoFace) {
		return verification{bioCheck: true}, nil
	}
	if err != nil {
		return verification{}, err
	}
	score, liveness := m.Score, m.Liveness
	ok := score >= minMatchScore && liveness >= minLiveness
	if !ok {
		slog.Info("Tick face check failed", "employee_id", emp.ID, "score", score, "liveness", liveness)
	}
	return verification{verified: ok, bioCheck: true, score: &score, liveness: &liveness, reconcile: ok}, nil
}

// enroll registers the first photo of an employee unless the face already
// belongs to someone else.
func (s *TickServiceImpl) enroll(ctx context.Context, emp employee.Employee, photo []byte) (verification, error) {
	existing, err := s.recognizer.Identify(ctx, photo)
	if err != nil {
		return verification{}, err
	}
	if existing != "" {
		other, err := s.EmployeeRepository.GetByBiometricsPartnerID(ctx, existing)
		if err != nil && !errors.Is(err, employee.ErrEmployeeNotFound) {
			return verification{}, err
		}
		if err == nil && other.ID != emp.ID {
			slog.Warn("Face already enrolled for another employee", "employee_id", emp.ID, "other_employee_id", other.ID)
			return verification{bioCheck: true, duplicateOf: &duplicateFace{employeeID: other.ID, partnerID: existing}}, nil
		}
	}

	partnerID := existing
	if partnerID == "" {
		if partnerID, err = s.recognizer.CreatePerson(ctx, map[string]string{"employee_id": emp.ID, "name": emp.FullName}); err != nil {
			return verification{}, err
		}
	}
	if _, err := s.recognizer.UploadPhoto(ctx, partnerID, photo); err != nil {
		return verification{}, err
	}
	if err := s.EmployeeRepository.SetBiometricsPartnerID(ctx, emp.ID, &partnerID); err != nil {
		return verification{}, fmt.Errorf("failed to store biometrics partner id: %w", err)
	}
	slog.Info("Enrolled employee face", "employee_id", emp.ID, "partner_id", partnerID)
	return verification{verified: true, bioCheck: true, reconcile: true}, nil
}

func (s *TickServiceImpl) discardPhoto(ctx context.Context, key *string) {
	if key == nil || s.files == nil {
		return
	}
	if err := s.files.DeleteFile(ctx, *key); err != nil {
		slog.Warn("Failed to delete orphan tick photo", "key", *key, "error", err)
	}
}

// checkGeo enforces the network distance limit for principals that are not
// physically bound to the shop. It reports whether a geo check passed.
func checkGeo(p principal.Principal, net network.Network, sh shop.Shop, lat, lon *float64) (bool, error) {
	if !net.GeoCheckEnabled() || p.ShopBound() || p.Kind == principal.KindSystem {
		return false, nil
	}
	shopPos, ok := sh.Coordinates()
	if !ok {
		return false, tick.Reject(tick.CodeShopNotGeoConfigured, sh.Code)
	}
	if lat == nil || lon == nil {
		return false, tick.Reject(tick.CodeGeoOutOfRange, "coordinates are required")
	}
	dist := geo.DistanceKm(geo.Point{Lat: *lat, Lon: *lon}, shopPos)
	if dist > *net.AllowedGeoDistanceKm {
		return false, tick.Reject(tick.CodeGeoOutOfRange, fmt.Sprintf("%.2f km from shop, limit %.2f km", dist, *net.AllowedGeoDistanceKm))
	}
	return true, nil
}

func shopPlans(plans []workerday.WorkerDay, shopID string) []workerday.WorkerDay {
	out := plans[:0:0]
	for _, p := range plans {
		if p.ShopID == shopID {
			out = append(out, p)
		}
	}
	return out
}

func sourceOf(p principal.Principal, requested string) tick.Source {
	if requested != "" {
		return tick.Source(requested)
	}
	switch p.Kind {
	case principal.KindTerminal, principal.KindSystem:
		return tick.SourceTerminal
	case principal.KindShopIP:
		return tick.SourceIPBound
	}
	return tick.SourceMobile
}

func readPhoto(req tick.CreateTickRequest) ([]byte, error) {
	if len(req.PhotoBytes) > 0 {
		return req.PhotoBytes, nil
	}
	if req.Photo == nil {
		return nil, nil
	}
	data, err := io.ReadAll(io.LimitReader(req.Photo, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return nil, validator.ValidationErrors{{Field: "photo", Message: "photo size must not exceed 10MB"}}
	}
	return data, nil
}
