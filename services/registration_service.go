package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/bracket-relay/models"
	"github.com/Dosada05/bracket-relay/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RegistrationService — dedup guard перед допуском игроков в турнир. Пачка
// либо проходит целиком, либо отклоняется целиком с полным отчётом о
// конфликтах; частичных заявок отклонённая пачка не оставляет.
type RegistrationService struct {
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
) *RegistrationService {
	return &RegistrationService{
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
	}
}

type BulkRegisterInput struct {
	Mode        string
	Names       []string
	Fingerprint string
}

type NameFailure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BulkRegisterResult — итог по каждой кандидатуре прошедшей валидацию пачки.
// Сбой отдельной вставки после валидации не фатален для соседей.
type BulkRegisterResult struct {
	Created []models.Registration `json:"created"`
	Failed  []NameFailure         `json:"failed,omitempty"`
}

func (s *RegistrationService) BulkRegister(ctx context.Context, actorID, tournamentID int, input BulkRegisterInput) (*BulkRegisterResult, error) {
	tournament, err := s.loadOwnedTournament(ctx, actorID, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusOpen {
		return nil, ErrRegistrationNotOpen
	}

	candidates := trimNonEmpty(input.Names)
	if len(candidates) == 0 {
		return nil, ErrRegistrationNamesRequired
	}

	internal := findInternalDuplicates(candidates)

	existing, err := s.registrationRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing registrations for tournament %d: %w", tournamentID, err)
	}
	external := findExternalDuplicates(candidates, existing)

	// Любой конфликт отклоняет пачку целиком: ни одна заявка не создаётся.
	if len(internal) > 0 || len(external) > 0 {
		return nil, &ConflictError{Internal: internal, External: external}
	}

	fingerprint := input.Fingerprint
	if fingerprint == "" {
		fingerprint = uuid.NewString()
	}

	// Валидация пройдена: вставки идут параллельно, итог собирается по каждой
	// кандидатуре отдельно.
	results := make([]*models.Registration, len(candidates))
	failures := make([]*NameFailure, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	for i, name := range candidates {
		i, name := i, name
		g.Go(func() error {
			reg := &models.Registration{
				TournamentID: tournamentID,
				PlayerName:   name,
				Fingerprint:  fingerprint,
				Mode:         input.Mode,
			}
			if err := s.registrationRepo.Create(gCtx, reg); err != nil {
				failures[i] = &NameFailure{Name: name, Reason: err.Error()}
				return nil // сосед не должен падать из-за этой вставки
			}
			results[i] = reg
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkRegisterResult{Created: make([]models.Registration, 0, len(candidates))}
	for i := range candidates {
		if results[i] != nil {
			result.Created = append(result.Created, *results[i])
		} else if failures[i] != nil {
			result.Failed = append(result.Failed, *failures[i])
		}
	}
	return result, nil
}

type ManualRegisterInput struct {
	Name         string
	Mode         string
	Fingerprint  string
	PrimaryPicks []string
	ReservePicks []string
}

// ManualRegister — облегчённый административный путь для одной заявки.
// Дубликаты здесь тоже отклоняются, но отчёт одноимённый, без двух наборов.
func (s *RegistrationService) ManualRegister(ctx context.Context, actorID, tournamentID int, input ManualRegisterInput) (*models.Registration, error) {
	tournament, err := s.loadOwnedTournament(ctx, actorID, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusOpen {
		return nil, ErrRegistrationNotOpen
	}

	candidates := trimNonEmpty([]string{input.Name})
	if len(candidates) == 0 {
		return nil, ErrRegistrationNamesRequired
	}
	name := candidates[0]

	if len(input.PrimaryPicks) > models.MaxPrimaryPicks {
		return nil, ErrTooManyPrimaryPicks
	}

	existing, err := s.registrationRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing registrations for tournament %d: %w", tournamentID, err)
	}
	if external := findExternalDuplicates([]string{name}, existing); len(external) > 0 {
		return nil, &ConflictError{External: external}
	}

	fingerprint := input.Fingerprint
	if fingerprint == "" {
		fingerprint = uuid.NewString()
	}

	reg := &models.Registration{
		TournamentID: tournamentID,
		PlayerName:   name,
		Fingerprint:  fingerprint,
		Mode:         input.Mode,
		PrimaryPicks: input.PrimaryPicks,
		ReservePicks: input.ReservePicks,
	}
	if err := s.registrationRepo.Create(ctx, reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// RemoveRegistration снимает заявку, пока регистрация открыта. После
// генерации сетки состав участников зафиксирован у провайдера, и локальное
// удаление только рассинхронизировало бы зеркало.
func (s *RegistrationService) RemoveRegistration(ctx context.Context, actorID, tournamentID, registrationID int) error {
	tournament, err := s.loadOwnedTournament(ctx, actorID, tournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.StatusOpen {
		return ErrRegistrationNotOpen
	}

	reg, err := s.registrationRepo.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return err
	}
	if reg.TournamentID != tournamentID {
		return ErrRegistrationNotFound
	}

	if err := s.registrationRepo.Delete(ctx, registrationID); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return err
	}
	return nil
}

func (s *RegistrationService) ListByTournament(ctx context.Context, tournamentID int) ([]models.Registration, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	regs, err := s.registrationRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for tournament %d: %w", tournamentID, err)
	}
	return RegistrationsToInterface(regs), nil
}

func (s *RegistrationService) loadOwnedTournament(ctx context.Context, actorID, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.OwnerID != actorID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func trimNonEmpty(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func findInternalDuplicates(candidates []string) []string {
	seen := make(map[string]int, len(candidates))
	dup := make(map[string]bool)
	for _, name := range candidates {
		seen[normalizeName(name)]++
	}
	for _, name := range candidates {
		if seen[normalizeName(name)] > 1 {
			dup[name] = true
		}
	}
	return sortedKeys(dup)
}

func findExternalDuplicates(candidates []string, existing []*models.Registration) []string {
	taken := make(map[string]bool, len(existing))
	for _, reg := range existing {
		if reg != nil {
			taken[normalizeName(reg.PlayerName)] = true
		}
	}
	dup := make(map[string]bool)
	for _, name := range candidates {
		if taken[normalizeName(name)] {
			dup[name] = true
		}
	}
	return sortedKeys(dup)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
