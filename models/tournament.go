package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusDraft     TournamentStatus = "draft"
	StatusOpen      TournamentStatus = "open"
	StatusClosed    TournamentStatus = "closed"
	StatusCompleted TournamentStatus = "completed"
)

// Tournament представляет турнир. BracketRef — непрозрачная ссылка на сетку
// у внешнего провайдера; пока она NULL, локальных матчей быть не может.
type Tournament struct {
	ID          int              `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Status      TournamentStatus `json:"status" db:"status"`
	BracketType string           `json:"bracket_type" db:"bracket_type"`
	ArenaCount  int              `json:"arena_count" db:"arena_count"`
	BracketRef  *string          `json:"bracket_ref,omitempty" db:"bracket_ref"`
	OwnerID     int              `json:"owner_id" db:"owner_id"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Registrations []Registration `json:"registrations,omitempty" db:"-"`
	Matches       []Match        `json:"matches,omitempty" db:"-"`
}
