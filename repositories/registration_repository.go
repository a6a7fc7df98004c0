package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-relay/models"
	"github.com/lib/pq"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament conflict or invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error)
	Delete(ctx context.Context, id int) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (tournament_id, player_name, fingerprint, mode, primary_picks, reserve_picks)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	if reg.PrimaryPicks == nil {
		reg.PrimaryPicks = pq.StringArray{}
	}
	if reg.ReservePicks == nil {
		reg.ReservePicks = pq.StringArray{}
	}

	err := r.db.QueryRowContext(ctx, query,
		reg.TournamentID,
		reg.PlayerName,
		reg.Fingerprint,
		reg.Mode,
		reg.PrimaryPicks,
		reg.ReservePicks,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "registrations_tournament_id_fkey" {
				return ErrRegistrationTournamentInvalid
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) FindByID(ctx context.Context, id int) (*models.Registration, error) {
	query := `
		SELECT id, tournament_id, player_name, fingerprint, mode, primary_picks, reserve_picks, created_at
		FROM registrations
		WHERE id = $1`

	reg := &models.Registration{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&reg.ID,
		&reg.TournamentID,
		&reg.PlayerName,
		&reg.Fingerprint,
		&reg.Mode,
		&reg.PrimaryPicks,
		&reg.ReservePicks,
		&reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to scan registration by id %d: %w", id, err)
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	query := `
		SELECT id, tournament_id, player_name, fingerprint, mode, primary_picks, reserve_picks, created_at
		FROM registrations
		WHERE tournament_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	regs := make([]*models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if scanErr := rows.Scan(
			&reg.ID,
			&reg.TournamentID,
			&reg.PlayerName,
			&reg.Fingerprint,
			&reg.Mode,
			&reg.PrimaryPicks,
			&reg.ReservePicks,
			&reg.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", scanErr)
		}
		regs = append(regs, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during registration rows iteration: %w", err)
	}
	return regs, nil
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM registrations WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
