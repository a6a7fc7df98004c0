package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/bracket-relay/models"
	"github.com/Dosada05/bracket-relay/provider"
	"github.com/Dosada05/bracket-relay/repositories"
)

// In-memory реализации репозиториев для тестов сервисного слоя.

type fakeTournamentRepo struct {
	mu     sync.Mutex
	byID   map[int]*models.Tournament
	nextID int
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{byID: make(map[int]*models.Tournament), nextID: 1}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	r.nextID++
	clone := *t
	r.byID[t.ID] = &clone
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTournamentRepo) GetByBracketRef(ctx context.Context, bracketRef string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.BracketRef != nil && *t.BracketRef == bracketRef {
			clone := *t
			return &clone, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Tournament, 0, len(r.byID))
	for _, t := range r.byID {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) UpdateBracketRef(ctx context.Context, exec repositories.SQLExecutor, id int, bracketRef *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if bracketRef != nil {
		ref := *bracketRef
		t.BracketRef = &ref
	} else {
		t.BracketRef = nil
	}
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.byID, id)
	return nil
}

type fakeRegistrationRepo struct {
	mu        sync.Mutex
	byID      map[int]*models.Registration
	nextID    int
	failNames map[string]error // имя -> ошибка вставки
}

func newFakeRegistrationRepo() *fakeRegistrationRepo {
	return &fakeRegistrationRepo{byID: make(map[int]*models.Registration), nextID: 1, failNames: make(map[string]error)}
}

func (r *fakeRegistrationRepo) Create(ctx context.Context, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failNames[reg.PlayerName]; ok {
		return err
	}
	reg.ID = r.nextID
	reg.CreatedAt = time.Now()
	r.nextID++
	clone := *reg
	r.byID[reg.ID] = &clone
	return nil
}

func (r *fakeRegistrationRepo) FindByID(ctx context.Context, id int) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	clone := *reg
	return &clone, nil
}

func (r *fakeRegistrationRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Registration, 0)
	for _, reg := range r.byID {
		if reg.TournamentID == tournamentID {
			clone := *reg
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRegistrationRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repositories.ErrRegistrationNotFound
	}
	delete(r.byID, id)
	return nil
}

type fakeMatchRepo struct {
	mu         sync.Mutex
	byID       map[int64]*models.Match
	failUpsert error
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{byID: make(map[int64]*models.Match)}
}

func (r *fakeMatchRepo) UpsertIfNewer(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpsert != nil {
		return false, r.failUpsert
	}
	existing, ok := r.byID[match.ID]
	if ok && existing.StateRank > match.StateRank {
		return false, nil
	}
	clone := *match
	clone.UpdatedAt = time.Now()
	r.byID[match.ID] = &clone
	return true, nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	clone := *match
	return &clone, nil
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0)
	for _, match := range r.byID {
		if match.TournamentID == tournamentID {
			clone := *match
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, match := range r.byID {
		if match.TournamentID == tournamentID {
			delete(r.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeCredentialRepo struct {
	keys map[int]string
}

func (r *fakeCredentialRepo) APIKeyForUser(ctx context.Context, userID int) (string, error) {
	key, ok := r.keys[userID]
	if !ok {
		return "", repositories.ErrCredentialNotFound
	}
	return key, nil
}

type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

// fakeProvider записывает вызовы и отдаёт настроенные ответы.
type fakeProvider struct {
	mu sync.Mutex

	createErr error
	bracket   string

	submitErr    error
	submitCalls  []submittedScore
	createdCalls []createdBracket

	matches    []provider.Match
	matchesErr error

	standings    []models.RankedEntry
	standingsErr error
}

type submittedScore struct {
	APIKey     string
	BracketRef string
	MatchID    int64
	ScoreCSV   string
	WinnerID   int64
}

type createdBracket struct {
	APIKey  string
	Players []string
	Opts    provider.CreateOptions
}

func (p *fakeProvider) CreateAndStartBracket(ctx context.Context, apiKey string, players []string, opts provider.CreateOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return "", p.createErr
	}
	p.createdCalls = append(p.createdCalls, createdBracket{APIKey: apiKey, Players: players, Opts: opts})
	if p.bracket != "" {
		return p.bracket, nil
	}
	return opts.URLSlug, nil
}

func (p *fakeProvider) FetchMatches(ctx context.Context, apiKey, bracketRef string) ([]provider.Match, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.matchesErr != nil {
		return nil, p.matchesErr
	}
	return p.matches, nil
}

func (p *fakeProvider) FetchStandings(ctx context.Context, apiKey, bracketRef string) ([]models.RankedEntry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.standingsErr != nil {
		return nil, p.standingsErr
	}
	return p.standings, nil
}

func (p *fakeProvider) SubmitScore(ctx context.Context, apiKey, bracketRef string, matchID int64, scoreCSV string, winnerID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitErr != nil {
		return p.submitErr
	}
	p.submitCalls = append(p.submitCalls, submittedScore{
		APIKey:     apiKey,
		BracketRef: bracketRef,
		MatchID:    matchID,
		ScoreCSV:   scoreCSV,
		WinnerID:   winnerID,
	})
	return nil
}

var errStorageDown = errors.New("storage is down")
