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
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
)

type MatchRepository interface {
	// UpsertIfNewer записывает матч, только если его state_rank не ниже уже
	// сохранённого. Возвращает true, если запись применена, false — если
	// отброшена как устаревшая. Это единственная точка записи матчей.
	UpsertIfNewer(ctx context.Context, exec SQLExecutor, match *models.Match) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) UpsertIfNewer(ctx context.Context, exec SQLExecutor, match *models.Match) (bool, error) {
	executor := r.getExecutor(exec)
	// Условие на state_rank превращает upsert в compare-and-swap: более
	// старое уведомление не может перезаписать более новое состояние.
	// Равный ранг применяется, чтобы повтор и ручная корректировка сходились.
	query := `
		INSERT INTO matches
			(id, tournament_id, player1_id, player2_id, state, state_rank, winner_id, score_csv, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			tournament_id = EXCLUDED.tournament_id,
			player1_id    = EXCLUDED.player1_id,
			player2_id    = EXCLUDED.player2_id,
			state         = EXCLUDED.state,
			state_rank    = EXCLUDED.state_rank,
			winner_id     = EXCLUDED.winner_id,
			score_csv     = EXCLUDED.score_csv,
			updated_at    = now()
		WHERE matches.state_rank <= EXCLUDED.state_rank`

	result, err := executor.ExecContext(ctx, query,
		match.ID,
		match.TournamentID,
		match.Player1ID,
		match.Player2ID,
		match.State,
		match.StateRank,
		match.WinnerID,
		match.ScoreCSV,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "matches_tournament_id_fkey" {
				return false, ErrMatchTournamentInvalid
			}
		}
		return false, fmt.Errorf("failed to upsert match %d: %w", match.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows for match %d: %w", match.ID, err)
	}
	return rowsAffected > 0, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	query := `
		SELECT id, tournament_id, player1_id, player2_id, state, state_rank, winner_id, score_csv, updated_at
		FROM matches
		WHERE id = $1`

	match := &models.Match{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.TournamentID,
		&match.Player1ID,
		&match.Player2ID,
		&match.State,
		&match.StateRank,
		&match.WinnerID,
		&match.ScoreCSV,
		&match.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `
		SELECT id, tournament_id, player1_id, player2_id, state, state_rank, winner_id, score_csv, updated_at
		FROM matches
		WHERE tournament_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var match models.Match
		if scanErr := rows.Scan(
			&match.ID,
			&match.TournamentID,
			&match.Player1ID,
			&match.Player2ID,
			&match.State,
			&match.StateRank,
			&match.WinnerID,
			&match.ScoreCSV,
			&match.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `DELETE FROM matches WHERE tournament_id = $1`
	result, err := executor.ExecContext(ctx, query, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return result.RowsAffected()
}
