package models

import (
	"time"

	"github.com/lib/pq"
)

// Registration — заявка игрока в турнире. Уникальность имени (без учёта
// регистра) обеспечивается на уровне приложения, не БД.
type Registration struct {
	ID           int            `json:"id" db:"id"`
	TournamentID int            `json:"tournament_id" db:"tournament_id"`
	PlayerName   string         `json:"player_name" db:"player_name"`
	Fingerprint  string         `json:"-" db:"fingerprint"`
	Mode         string         `json:"mode" db:"mode"`
	PrimaryPicks pq.StringArray `json:"primary_picks" db:"primary_picks"`
	ReservePicks pq.StringArray `json:"reserve_picks" db:"reserve_picks"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// MaxPrimaryPicks ограничивает количество основных выборов на заявку.
const MaxPrimaryPicks = 3
