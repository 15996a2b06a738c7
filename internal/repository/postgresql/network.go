package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/wfm-backend-go/internal/domain/network"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type networkRepositoryImpl struct {
	db *database.DB
}

func NewNetworkRepository(db *database.DB) network.NetworkRepository {
	return &networkRepositoryImpl{db: db}
}

const networkColumns = `
	id, name, allowed_geo_distance_km, require_active_employment, require_schedule,
	trust_tick_request, strict_biometrics, allow_unplanned_work, strict_fact_plan,
	create_tick_only_record, delta_for_coming_in_sec, delta_for_leaving_sec, max_diff_sec,
	allowed_late_arrival_sec, allowed_early_departure_sec, allowed_late_departure_sec,
	break_strategy, night_start_sec, night_end_sec, absenteeism_percent,
	check_lack_timegap_sec, worker_select_timegap_sec, create_vacancy_lack_min,
	delete_vacancy_lack_max, worker_select_overflow_min, require_reassign_confirmation,
	created_at, updated_at`

// GetByID implements network.NetworkRepository.
func (r *networkRepositoryImpl) GetByID(ctx context.Context, id string) (network.Network, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + networkColumns + ` FROM networks WHERE id = $1`

	n, err := scanNetwork(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return network.Network{}, network.ErrNetworkNotFound
		}
		return network.Network{}, fmt.Errorf("failed to get network with id %s: %w", id, err)
	}
	return n, nil
}

// List implements network.NetworkRepository.
func (r *networkRepositoryImpl) List(ctx context.Context) ([]network.Network, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + networkColumns + ` FROM networks ORDER BY id`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}
	defer rows.Close()

	var networks []network.Network
	for rows.Next() {
		n, err := scanNetwork(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan network: %w", err)
		}
		networks = append(networks, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return networks, nil
}

func scanNetwork(row pgx.Row) (network.Network, error) {
	var (
		n                                             network.Network
		comingIn, leaving, maxDiff                    int64
		lateArrival, earlyDeparture, lateDeparture    int64
		nightStart, nightEnd, checkLack, workerSelect int64
		breakStrategy                                 string
	)
	err := row.Scan(
		&n.ID, &n.Name, &n.AllowedGeoDistanceKm, &n.RequireActiveEmployment, &n.RequireSchedule,
		&n.TrustTickRequest, &n.StrictBiometrics, &n.AllowUnplannedWork, &n.StrictFactPlan,
		&n.CreateTickOnlyRecord, &comingIn, &leaving, &maxDiff,
		&lateArrival, &earlyDeparture, &lateDeparture,
		&breakStrategy, &nightStart, &nightEnd, &n.AbsenteeismPercent,
		&checkLack, &workerSelect, &n.CreateVacancyLackMin,
		&n.DeleteVacancyLackMax, &n.WorkerSelectOverflowMin, &n.RequireReassignConfirmation,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return network.Network{}, err
	}
	n.DeltaForComingIn = seconds(comingIn)
	n.DeltaForLeaving = seconds(leaving)
	n.MaxDiff = seconds(maxDiff)
	n.AllowedLateArrival = seconds(lateArrival)
	n.AllowedEarlyDeparture = seconds(earlyDeparture)
	n.AllowedLateDeparture = seconds(lateDeparture)
	n.BreakStrategy = network.BreakStrategy(breakStrategy)
	n.NightStart = seconds(nightStart)
	n.NightEnd = seconds(nightEnd)
	n.CheckLackTimegap = seconds(checkLack)
	n.WorkerSelectTimegap = seconds(workerSelect)
	return n, nil
}

func seconds(s int64) time.Duration {
	return time.Duration(s) * time.Second
}
