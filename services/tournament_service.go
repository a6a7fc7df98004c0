package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Dosada05/bracket-relay/models"
	"github.com/Dosada05/bracket-relay/provider"
	"github.com/Dosada05/bracket-relay/repositories"
	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"
)

// TournamentService владеет статусной машиной турнира и его связью с сеткой
// у провайдера.
type TournamentService struct {
	txManager        repositories.TxManager
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	credentialRepo   repositories.CredentialRepository
	bracketProvider  provider.BracketProvider
	logger           *slog.Logger
}

func NewTournamentService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	credentialRepo repositories.CredentialRepository,
	bracketProvider provider.BracketProvider,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		txManager:        txManager,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		credentialRepo:   credentialRepo,
		bracketProvider:  bracketProvider,
		logger:           logger,
	}
}

type CreateTournamentInput struct {
	Name        string `json:"name"`
	BracketType string `json:"bracket_type"`
	ArenaCount  int    `json:"arena_count"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, ownerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.ArenaCount < 0 {
		return nil, ErrTournamentInvalidCapacity
	}
	if input.ArenaCount == 0 {
		input.ArenaCount = 1
	}
	if input.BracketType == "" {
		input.BracketType = "single elimination"
	}

	tournament := &models.Tournament{
		Name:        input.Name,
		Status:      models.StatusDraft,
		BracketType: input.BracketType,
		ArenaCount:  input.ArenaCount,
		OwnerID:     ownerID,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, err
	}
	return tournament, nil
}

// GetTournament возвращает турнир вместе с заявками и локальным зеркалом
// матчей. Связанные списки грузятся параллельно.
func (s *TournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		regs, err := s.registrationRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load registrations: %w", err)
		}
		tournament.Registrations = RegistrationsToInterface(regs)
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		tournament.Matches = MatchesToInterface(matches)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

func (s *TournamentService) UpdateStatus(ctx context.Context, actorID, id int, next models.TournamentStatus) (*models.Tournament, error) {
	if !isKnownStatus(next) {
		return nil, ErrTournamentInvalidStatus
	}

	tournament, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if !isValidStatusTransition(tournament.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, next)
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, next); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	tournament.Status = next
	return tournament, nil
}

func (s *TournamentService) DeleteTournament(ctx context.Context, actorID, id int) error {
	tournament, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return err
	}
	if tournament.Status != models.StatusDraft {
		return ErrTournamentNotDraft
	}
	return mapTournamentRepoError(s.tournamentRepo.Delete(ctx, id))
}

// GenerateBracket создаёт и запускает сетку у провайдера и сохраняет
// полученную ссылку. Требует хотя бы одной заявки и ключа владельца.
func (s *TournamentService) GenerateBracket(ctx context.Context, actorID, id int) (*models.Tournament, error) {
	tournament, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if tournament.BracketRef != nil {
		return nil, ErrBracketAlreadyGenerated
	}
	if tournament.Status != models.StatusOpen {
		return nil, fmt.Errorf("%w: bracket generation requires an open tournament", ErrTournamentInvalidStatusTransition)
	}

	regs, err := s.registrationRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations for tournament %d: %w", id, err)
	}
	if len(regs) == 0 {
		return nil, ErrNoRegistrations
	}
	players := make([]string, 0, len(regs))
	for _, reg := range regs {
		players = append(players, reg.PlayerName)
	}

	apiKey, err := s.credentialRepo.APIKeyForUser(ctx, tournament.OwnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrCredentialNotFound) {
			return nil, ErrCredentialMissing
		}
		return nil, err
	}

	opts := provider.CreateOptions{
		Name:        tournament.Name,
		URLSlug:     slug.Make(tournament.Name) + "_" + strconv.Itoa(tournament.ID),
		BracketType: tournament.BracketType,
	}
	bracketRef, err := s.bracketProvider.CreateAndStartBracket(ctx, apiKey, players, opts)
	if err != nil {
		return nil, err
	}

	// Ссылка и закрытие регистрации фиксируются одной транзакцией.
	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.UpdateBracketRef(ctx, exec, id, &bracketRef); err != nil {
			return mapTournamentRepoError(err)
		}
		return mapTournamentRepoError(s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusClosed))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket generated",
		slog.Int("tournament_id", id),
		slog.String("bracket_ref", bracketRef),
		slog.Int("players", len(players)),
	)

	tournament.BracketRef = &bracketRef
	tournament.Status = models.StatusClosed
	return tournament, nil
}

// ResetBracket атомарно очищает ссылку на сетку и удаляет все локальные
// матчи, возвращая турнир в состояние до генерации. Заявки не трогаются.
func (s *TournamentService) ResetBracket(ctx context.Context, actorID, id int) (*models.Tournament, error) {
	tournament, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.StatusDraft {
		return nil, fmt.Errorf("%w: draft tournament has nothing to reset", ErrTournamentInvalidStatusTransition)
	}

	var deleted int64
	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournamentRepo.UpdateBracketRef(ctx, exec, id, nil); err != nil {
			return mapTournamentRepoError(err)
		}
		deleted, err = s.matchRepo.DeleteByTournament(ctx, exec, id)
		if err != nil {
			return err
		}
		return mapTournamentRepoError(s.tournamentRepo.UpdateStatus(ctx, exec, id, models.StatusOpen))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket reset",
		slog.Int("tournament_id", id),
		slog.Int64("matches_deleted", deleted),
	)

	tournament.BracketRef = nil
	tournament.Status = models.StatusOpen
	tournament.Matches = nil
	return tournament, nil
}

func (s *TournamentService) loadOwned(ctx context.Context, actorID, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.OwnerID != actorID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}
