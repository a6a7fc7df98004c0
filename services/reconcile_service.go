package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/bracket-relay/models"
	"github.com/Dosada05/bracket-relay/provider"
	"github.com/Dosada05/bracket-relay/realtime"
	"github.com/Dosada05/bracket-relay/repositories"
)

// Notification — нормализованное уведомление о смене состояния матча.
// Приходит от провайдера (вебхук или сверочный проход); доставка как минимум
// однократная, порядок не гарантирован.
type Notification struct {
	MatchID      int64
	TournamentID int    // локальный id; 0, если известна только ссылка на сетку
	BracketRef   string // идентификатор сетки у провайдера
	State        string
	WinnerID     *int64
	ScoreCSV     *string
	Player1ID    *int64
	Player2ID    *int64
}

// MatchEvent — компактное уведомление подписчикам. Применяется по принципу
// insert-or-replace-by-id, поэтому повторы и перестановки безвредны.
type MatchEvent struct {
	MatchID  int64   `json:"match_id"`
	State    string  `json:"state,omitempty"`
	WinnerID *int64  `json:"winner_id,omitempty"`
	ScoreCSV *string `json:"score_csv,omitempty"`
}

// ReconcileService сводит два независимых пути записи — вебхуки провайдера и
// ручные корректировки администратора — в одну согласованную локальную
// запись матча. Оба пути проходят через один идемпотентный upsert с
// проверкой ранга состояния; блокировок между ними нет.
type ReconcileService struct {
	tournamentRepo  repositories.TournamentRepository
	matchRepo       repositories.MatchRepository
	credentialRepo  repositories.CredentialRepository
	bracketProvider provider.BracketProvider
	publisher       realtime.Publisher
	logger          *slog.Logger
}

func NewReconcileService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	credentialRepo repositories.CredentialRepository,
	bracketProvider provider.BracketProvider,
	publisher realtime.Publisher,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		tournamentRepo:  tournamentRepo,
		matchRepo:       matchRepo,
		credentialRepo:  credentialRepo,
		bracketProvider: bracketProvider,
		publisher:       publisher,
		logger:          logger,
	}
}

// ApplyNotification применяет уведомление идемпотентно: повтор того же
// payload сходится к той же записи, а уведомление со строго более старым
// состоянием отбрасывается. Возвращает, была ли запись применена.
func (s *ReconcileService) ApplyNotification(ctx context.Context, n Notification) (bool, error) {
	tournament, err := s.resolveTournament(ctx, n.TournamentID, n.BracketRef)
	if err != nil {
		return false, err
	}
	// Матчи существуют только при наличии ссылки на сетку.
	if tournament.BracketRef == nil {
		return false, ErrBracketNotGenerated
	}

	match := &models.Match{
		ID:           n.MatchID,
		TournamentID: tournament.ID,
		Player1ID:    n.Player1ID,
		Player2ID:    n.Player2ID,
		State:        n.State,
		StateRank:    stateRank(n.State),
		WinnerID:     n.WinnerID,
		ScoreCSV:     n.ScoreCSV,
	}

	// Уведомление может не нести участников (вебхук), а локальная запись —
	// нести. Не затираем известное неизвестным.
	if match.Player1ID == nil || match.Player2ID == nil {
		if existing, err := s.matchRepo.GetByID(ctx, n.MatchID); err == nil {
			if match.Player1ID == nil {
				match.Player1ID = existing.Player1ID
			}
			if match.Player2ID == nil {
				match.Player2ID = existing.Player2ID
			}
		}
	}

	applied, err := s.matchRepo.UpsertIfNewer(ctx, nil, match)
	if err != nil {
		return false, err
	}
	if !applied {
		s.logger.Debug("stale notification dropped",
			slog.Int64("match_id", n.MatchID),
			slog.String("state", n.State),
		)
		return false, nil
	}

	s.publisher.Publish(realtime.TournamentTopic(tournament.ID), MatchEvent{
		MatchID:  match.ID,
		State:    match.State,
		WinnerID: match.WinnerID,
		ScoreCSV: match.ScoreCSV,
	})
	return true, nil
}

type CorrectionInput struct {
	BracketRef   string // ссылка/slug сетки у провайдера
	TournamentID int    // опционально: локальный турнир для fan-out
	MatchID      int64
	ScoreCSV     string
	WinnerID     int64
}

// SubmitCorrection — ручной путь: корректировка сначала уходит провайдеру,
// и только после его подтверждения пишется локально и рассылается. Любой
// сбой до локальной записи оставляет запись матча нетронутой; режима
// «только локально» нет.
func (s *ReconcileService) SubmitCorrection(ctx context.Context, actorID int, input CorrectionInput) (*models.Match, error) {
	if input.ScoreCSV == "" {
		return nil, ErrScoreRequired
	}
	if input.WinnerID == 0 {
		return nil, ErrWinnerRequired
	}

	tournament, err := s.resolveTournament(ctx, input.TournamentID, input.BracketRef)
	if err != nil {
		return nil, err
	}
	if tournament.OwnerID != actorID {
		return nil, ErrForbiddenOperation
	}
	if tournament.BracketRef == nil {
		return nil, ErrBracketNotGenerated
	}

	apiKey, err := s.credentialRepo.APIKeyForUser(ctx, tournament.OwnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrCredentialNotFound) {
			return nil, ErrCredentialMissing
		}
		return nil, err
	}

	// Этап 1: правда провайдера обновляется первой.
	if err := s.bracketProvider.SubmitScore(ctx, apiKey, *tournament.BracketRef, input.MatchID, input.ScoreCSV, input.WinnerID); err != nil {
		return nil, &StageError{Stage: StageProviderPush, Err: err}
	}

	// Этап 2: оптимистичный локальный upsert через тот же CAS-примитив, что
	// и вебхуки: гонка с параллельным вебхуком решается рангом состояния.
	winnerID := input.WinnerID
	scoreCSV := input.ScoreCSV
	match := &models.Match{
		ID:           input.MatchID,
		TournamentID: tournament.ID,
		State:        models.MatchStateComplete,
		StateRank:    stateRank(models.MatchStateComplete),
		WinnerID:     &winnerID,
		ScoreCSV:     &scoreCSV,
	}
	if existing, err := s.matchRepo.GetByID(ctx, input.MatchID); err == nil {
		match.Player1ID = existing.Player1ID
		match.Player2ID = existing.Player2ID
	}
	if _, err := s.matchRepo.UpsertIfNewer(ctx, nil, match); err != nil {
		return nil, &StageError{Stage: StageLocalUpsert, Err: err}
	}

	// Этап 3: минимальный payload — подписчики перечитывают запись сами.
	s.publisher.Publish(realtime.TournamentTopic(tournament.ID), MatchEvent{MatchID: input.MatchID})

	s.logger.Info("score correction applied",
		slog.Int64("match_id", input.MatchID),
		slog.Int("tournament_id", tournament.ID),
		slog.Int64("winner_id", input.WinnerID),
	)
	return match, nil
}

// RefreshTournament стягивает все матчи сетки у провайдера и прогоняет их
// через тот же идемпотентный upsert, исправляя любые расхождения, которые
// вебхуки могли пропустить. Возвращает число применённых записей.
func (s *ReconcileService) RefreshTournament(ctx context.Context, tournamentID int) (int, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return 0, mapTournamentRepoError(err)
	}
	if tournament.BracketRef == nil {
		return 0, ErrBracketNotGenerated
	}

	apiKey, err := s.credentialRepo.APIKeyForUser(ctx, tournament.OwnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrCredentialNotFound) {
			return 0, ErrCredentialMissing
		}
		return 0, err
	}

	providerMatches, err := s.bracketProvider.FetchMatches(ctx, apiKey, *tournament.BracketRef)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, pm := range providerMatches {
		var scoreCSV *string
		if pm.ScoreCSV != "" {
			sc := pm.ScoreCSV
			scoreCSV = &sc
		}
		match := &models.Match{
			ID:           pm.ID,
			TournamentID: tournament.ID,
			Player1ID:    pm.Player1ID,
			Player2ID:    pm.Player2ID,
			State:        pm.State,
			StateRank:    stateRank(pm.State),
			WinnerID:     pm.WinnerID,
			ScoreCSV:     scoreCSV,
		}
		ok, err := s.matchRepo.UpsertIfNewer(ctx, nil, match)
		if err != nil {
			// Один матч не должен ронять весь проход.
			s.logger.Error("refresh upsert failed",
				slog.Int64("match_id", pm.ID),
				slog.Any("error", err),
			)
			continue
		}
		if ok {
			applied++
			s.publisher.Publish(realtime.TournamentTopic(tournament.ID), MatchEvent{
				MatchID:  match.ID,
				State:    match.State,
				WinnerID: match.WinnerID,
				ScoreCSV: match.ScoreCSV,
			})
		}
	}
	return applied, nil
}

// SweepAll обновляет все турниры с активной сеткой. Запускается планировщиком.
func (s *ReconcileService) SweepAll(ctx context.Context) error {
	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{})
	if err != nil {
		return fmt.Errorf("failed to list tournaments for sweep: %w", err)
	}
	for _, t := range tournaments {
		if t.BracketRef == nil {
			continue
		}
		applied, err := s.RefreshTournament(ctx, t.ID)
		if err != nil {
			s.logger.Error("sweep refresh failed",
				slog.Int("tournament_id", t.ID),
				slog.Any("error", err),
			)
			continue
		}
		if applied > 0 {
			s.logger.Info("sweep applied updates",
				slog.Int("tournament_id", t.ID),
				slog.Int("applied", applied),
			)
		}
	}
	return nil
}

// Standings запрашивает таблицу результатов у провайдера под ключом
// владельца турнира.
func (s *ReconcileService) Standings(ctx context.Context, actorID, tournamentID int) ([]models.RankedEntry, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.OwnerID != actorID {
		return nil, ErrForbiddenOperation
	}
	if tournament.BracketRef == nil {
		return nil, ErrBracketNotGenerated
	}

	apiKey, err := s.credentialRepo.APIKeyForUser(ctx, tournament.OwnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrCredentialNotFound) {
			return nil, ErrCredentialMissing
		}
		return nil, err
	}
	return s.bracketProvider.FetchStandings(ctx, apiKey, *tournament.BracketRef)
}

// ListMatches отдаёт локальное зеркало матчей: быстрый путь чтения без
// обращения к провайдеру.
func (s *ReconcileService) ListMatches(ctx context.Context, tournamentID int) ([]models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return MatchesToInterface(matches), nil
}

func (s *ReconcileService) resolveTournament(ctx context.Context, tournamentID int, bracketRef string) (*models.Tournament, error) {
	if tournamentID > 0 {
		t, err := s.tournamentRepo.GetByID(ctx, tournamentID)
		return t, mapTournamentRepoError(err)
	}
	if bracketRef != "" {
		t, err := s.tournamentRepo.GetByBracketRef(ctx, bracketRef)
		return t, mapTournamentRepoError(err)
	}
	return nil, ErrTournamentNotFound
}
