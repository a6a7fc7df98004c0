package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/bracket-relay/models"
)

// Виды отказов провайдера. Каждый сбой адаптера разворачивается (errors.Is)
// ровно в один из них, чтобы вызывающие не разбирали транспортные детали.
var (
	ErrInvalidCredential = errors.New("provider rejected credential")
	ErrValidationFailed  = errors.New("provider validation failed")
	ErrUnavailable       = errors.New("provider unavailable")
	ErrNotFound          = errors.New("provider resource not found")
)

// Error сохраняет текст диагностики провайдера поверх типизированного вида.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Detail)
}

func (e *Error) Unwrap() error { return e.Kind }

// CreateOptions описывает параметры генерации сетки у провайдера.
type CreateOptions struct {
	Name        string
	URLSlug     string
	BracketType string
}

// Match — матч в представлении провайдера.
type Match struct {
	ID        int64
	Player1ID *int64
	Player2ID *int64
	State     string
	WinnerID  *int64
	ScoreCSV  string
}

// BracketProvider — типизированный клиент внешнего сервиса сеток. Все вызовы
// выполняются с ключом владельца турнира; общего ключа нет. Ретраев адаптер
// не делает — это политика вызывающего.
type BracketProvider interface {
	CreateAndStartBracket(ctx context.Context, apiKey string, players []string, opts CreateOptions) (string, error)
	FetchMatches(ctx context.Context, apiKey, bracketRef string) ([]Match, error)
	FetchStandings(ctx context.Context, apiKey, bracketRef string) ([]models.RankedEntry, error)
	SubmitScore(ctx context.Context, apiKey, bracketRef string, matchID int64, scoreCSV string, winnerID int64) error
}
