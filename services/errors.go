package services

import (
	"errors"
	"fmt"
	"strings"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed          = errors.New("validation failed")
	ErrTournamentNameRequired    = errors.New("tournament name is required")
	ErrTournamentInvalidCapacity = errors.New("tournament arena count must be positive")
	ErrRegistrationNotOpen       = errors.New("tournament registration is not open")
	ErrRegistrationNamesRequired = errors.New("at least one non-empty player name is required")
	ErrTooManyPrimaryPicks       = errors.New("too many primary selections")
	ErrBracketAlreadyGenerated   = errors.New("tournament already has a generated bracket")
	ErrBracketNotGenerated       = errors.New("tournament has no generated bracket")
	ErrNoRegistrations           = errors.New("bracket generation requires at least one registration")
	ErrScoreRequired             = errors.New("score string is required")
	ErrWinnerRequired            = errors.New("winner identifier is required")

	// Ошибки аутентификации и авторизации
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrCredentialMissing  = errors.New("organizer has no provider credential configured")

	// Ошибки, специфичные для сущностей
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrTournamentNotDraft   = errors.New("only draft tournaments can be deleted")

	// Ошибки статусной машины турнира
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
)

// ConflictError описывает отказ bulk-регистрации: оба набора конфликтов
// возвращаются вызывающему целиком.
type ConflictError struct {
	// Internal — имена, столкнувшиеся внутри одной пачки.
	Internal []string
	// External — имена, столкнувшиеся с уже существующими заявками турнира.
	External []string
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.External) > 0 {
		parts = append(parts, fmt.Sprintf("duplicates of existing registrations: %s", strings.Join(e.External, ", ")))
	}
	if len(e.Internal) > 0 {
		parts = append(parts, fmt.Sprintf("duplicates within the batch: %s", strings.Join(e.Internal, ", ")))
	}
	return "registration conflict: " + strings.Join(parts, "; ")
}

// CorrectionStage именует этап конвейера ручной корректировки счёта.
type CorrectionStage string

const (
	StageProviderPush CorrectionStage = "provider_push"
	StageLocalUpsert  CorrectionStage = "local_upsert"
	StageBroadcast    CorrectionStage = "broadcast"
)

// StageError сообщает, на каком именно этапе упала корректировка; последующие
// этапы гарантированно не выполнялись.
type StageError struct {
	Stage CorrectionStage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("score correction failed at stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
