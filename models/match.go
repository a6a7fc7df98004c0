package models

import "time"

// Известные состояния матча у провайдера. Словарь свободный: провайдер может
// прислать и другое значение, тогда оно хранится как есть.
const (
	MatchStatePending  = "pending"
	MatchStateOpen     = "open"
	MatchStateComplete = "complete"
)

// Match — локальная материализованная копия матча провайдера. ID совпадает с
// идентификатором матча у провайдера (локально идентификаторы не выдаются).
// Запись меняется только движком согласования.
type Match struct {
	ID           int64     `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Player1ID    *int64    `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int64    `json:"player2_id,omitempty" db:"player2_id"`
	State        string    `json:"state" db:"state"`
	StateRank    int       `json:"-" db:"state_rank"`
	WinnerID     *int64    `json:"winner_id,omitempty" db:"winner_id"`
	ScoreCSV     *string   `json:"score_csv,omitempty" db:"score_csv"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
