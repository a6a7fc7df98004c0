package services

import (
	"errors"
	"strings"

	"github.com/Dosada05/bracket-relay/models"
	"github.com/Dosada05/bracket-relay/repositories"
)

// mapTournamentRepoError переводит ошибку репозитория в сервисную.
func mapTournamentRepoError(err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}

// stateRank задаёт полный порядок над словарём состояний провайдера.
// Неизвестные состояния получают ранг 0: они могут завести новую запись, но
// никогда не откатывают известное состояние.
func stateRank(state string) int {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case models.MatchStatePending:
		return 1
	case models.MatchStateOpen:
		return 2
	case models.MatchStateComplete:
		return 3
	default:
		return 0
	}
}

// normalizeName — каноническая форма имени для сравнения на дубликаты.
func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusDraft:     {models.StatusOpen},
		models.StatusOpen:      {models.StatusClosed, models.StatusCompleted},
		models.StatusClosed:    {models.StatusOpen, models.StatusCompleted},
		models.StatusCompleted: {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

func isKnownStatus(status models.TournamentStatus) bool {
	switch status {
	case models.StatusDraft, models.StatusOpen, models.StatusClosed, models.StatusCompleted:
		return true
	}
	return false
}

func RegistrationsToInterface(slice []*models.Registration) []models.Registration {
	if slice == nil {
		return []models.Registration{}
	}
	result := make([]models.Registration, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func MatchesToInterface(slice []*models.Match) []models.Match {
	if slice == nil {
		return []models.Match{}
	}
	result := make([]models.Match, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}
