package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Dosada05/bracket-relay/models"
)

type registrationFixture struct {
	tournaments   *fakeTournamentRepo
	registrations *fakeRegistrationRepo
	service       *RegistrationService
}

func newRegistrationFixture() *registrationFixture {
	f := &registrationFixture{
		tournaments:   newFakeTournamentRepo(),
		registrations: newFakeRegistrationRepo(),
	}
	f.service = NewRegistrationService(f.registrations, f.tournaments)
	return f
}

func (f *registrationFixture) seedOpenTournament(t *testing.T) *models.Tournament {
	t.Helper()
	tournament := &models.Tournament{Name: "Spring Cup", Status: models.StatusOpen, OwnerID: 1}
	if err := f.tournaments.Create(context.Background(), tournament); err != nil {
		t.Fatalf("seed tournament: %v", err)
	}
	return tournament
}

func TestBulkRegisterCreatesAll(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	result, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"Alice", "Bob", "Carl"},
	})
	if err != nil {
		t.Fatalf("bulk register: %v", err)
	}
	if len(result.Created) != 3 {
		t.Fatalf("expected 3 created, got %d", len(result.Created))
	}
	if len(result.Failed) != 0 {
		t.Errorf("unexpected failures: %+v", result.Failed)
	}
	regs, _ := f.registrations.ListByTournament(context.Background(), tournament.ID)
	if len(regs) != 3 {
		t.Errorf("expected 3 stored registrations, got %d", len(regs))
	}
}

func TestBulkRegisterRejectsInternalDuplicates(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	_, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"Alice", "alice ", "Bob"},
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !reflect.DeepEqual(conflict.Internal, []string{"Alice", "alice"}) {
		t.Errorf("unexpected internal set: %+v", conflict.Internal)
	}
	if len(conflict.External) != 0 {
		t.Errorf("unexpected external set: %+v", conflict.External)
	}

	// Пачка отклонена целиком: даже неконфликтный Bob не создан.
	regs, _ := f.registrations.ListByTournament(context.Background(), tournament.ID)
	if len(regs) != 0 {
		t.Errorf("rejected batch must create nothing, got %d registrations", len(regs))
	}
}

func TestBulkRegisterRejectsExternalDuplicates(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	if _, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"Alice", "Bob"},
	}); err != nil {
		t.Fatalf("seed batch: %v", err)
	}

	// Сравнение без учёта регистра и внешних пробелов.
	_, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{" alice", "Carl"},
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !reflect.DeepEqual(conflict.External, []string{"alice"}) {
		t.Errorf("unexpected external set: %+v", conflict.External)
	}

	regs, _ := f.registrations.ListByTournament(context.Background(), tournament.ID)
	if len(regs) != 2 {
		t.Errorf("second batch must create nothing, got %d registrations", len(regs))
	}
}

func TestBulkRegisterReportsBothConflictSets(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	if _, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"Alice"},
	}); err != nil {
		t.Fatalf("seed batch: %v", err)
	}

	_, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"ALICE", "Bob", "bob"},
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !reflect.DeepEqual(conflict.External, []string{"ALICE"}) {
		t.Errorf("unexpected external set: %+v", conflict.External)
	}
	if !reflect.DeepEqual(conflict.Internal, []string{"Bob", "bob"}) {
		t.Errorf("unexpected internal set: %+v", conflict.Internal)
	}
}

func TestBulkRegisterSurvivesSingleInsertFailure(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)
	f.registrations.failNames["Bob"] = errStorageDown

	result, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"Alice", "Bob", "Carl"},
	})
	if err != nil {
		t.Fatalf("bulk register: %v", err)
	}
	if len(result.Created) != 2 {
		t.Errorf("expected 2 created despite one failure, got %d", len(result.Created))
	}
	if len(result.Failed) != 1 || result.Failed[0].Name != "Bob" {
		t.Errorf("expected Bob to be reported as failed, got %+v", result.Failed)
	}
}

func TestBulkRegisterRequiresOpenTournament(t *testing.T) {
	f := newRegistrationFixture()
	tournament := &models.Tournament{Name: "Spring Cup", Status: models.StatusDraft, OwnerID: 1}
	if err := f.tournaments.Create(context.Background(), tournament); err != nil {
		t.Fatalf("seed tournament: %v", err)
	}

	_, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"Alice"},
	})
	if !errors.Is(err, ErrRegistrationNotOpen) {
		t.Fatalf("expected ErrRegistrationNotOpen, got %v", err)
	}
}

func TestBulkRegisterChecksOwnership(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	_, err := f.service.BulkRegister(context.Background(), 42, tournament.ID, BulkRegisterInput{
		Names: []string{"Alice"},
	})
	if !errors.Is(err, ErrForbiddenOperation) {
		t.Fatalf("expected ErrForbiddenOperation, got %v", err)
	}
}

func TestBulkRegisterIgnoresBlankNames(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	result, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"  Alice  ", "", "   "},
	})
	if err != nil {
		t.Fatalf("bulk register: %v", err)
	}
	if len(result.Created) != 1 || result.Created[0].PlayerName != "Alice" {
		t.Errorf("expected a single trimmed registration, got %+v", result.Created)
	}

	if _, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"", "   "},
	}); !errors.Is(err, ErrRegistrationNamesRequired) {
		t.Errorf("expected ErrRegistrationNamesRequired, got %v", err)
	}
}

func TestManualRegisterEnforcesPickLimit(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	_, err := f.service.ManualRegister(context.Background(), 1, tournament.ID, ManualRegisterInput{
		Name:         "Alice",
		PrimaryPicks: []string{"a", "b", "c", "d"},
	})
	if !errors.Is(err, ErrTooManyPrimaryPicks) {
		t.Fatalf("expected ErrTooManyPrimaryPicks, got %v", err)
	}

	reg, err := f.service.ManualRegister(context.Background(), 1, tournament.ID, ManualRegisterInput{
		Name:         "Alice",
		PrimaryPicks: []string{"a", "b", "c"},
		ReservePicks: []string{"d"},
	})
	if err != nil {
		t.Fatalf("manual register: %v", err)
	}
	if reg.ID == 0 || reg.Fingerprint == "" {
		t.Errorf("registration not fully populated: %+v", reg)
	}
}

func TestRemoveRegistration(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	result, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"Alice", "Bob"},
	})
	if err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	aliceID := result.Created[0].ID

	if err := f.service.RemoveRegistration(context.Background(), 1, tournament.ID, aliceID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	regs, _ := f.registrations.ListByTournament(context.Background(), tournament.ID)
	if len(regs) != 1 || regs[0].PlayerName == "Alice" {
		t.Errorf("Alice should be gone, got %+v", regs)
	}

	// Освободившееся имя можно занять снова.
	if _, err := f.service.ManualRegister(context.Background(), 1, tournament.ID, ManualRegisterInput{Name: "alice"}); err != nil {
		t.Errorf("freed name should be registrable again: %v", err)
	}

	if err := f.service.RemoveRegistration(context.Background(), 1, tournament.ID, aliceID); !errors.Is(err, ErrRegistrationNotFound) {
		t.Errorf("expected ErrRegistrationNotFound for a removed registration, got %v", err)
	}
}

func TestRemoveRegistrationGuards(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	result, err := f.service.BulkRegister(context.Background(), 1, tournament.ID, BulkRegisterInput{
		Names: []string{"Alice"},
	})
	if err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	aliceID := result.Created[0].ID

	if err := f.service.RemoveRegistration(context.Background(), 42, tournament.ID, aliceID); !errors.Is(err, ErrForbiddenOperation) {
		t.Errorf("expected ErrForbiddenOperation for non-owner, got %v", err)
	}

	// Заявка другого турнира недоступна через этот.
	other := &models.Tournament{Name: "Other Cup", Status: models.StatusOpen, OwnerID: 1}
	if err := f.tournaments.Create(context.Background(), other); err != nil {
		t.Fatalf("seed other tournament: %v", err)
	}
	if err := f.service.RemoveRegistration(context.Background(), 1, other.ID, aliceID); !errors.Is(err, ErrRegistrationNotFound) {
		t.Errorf("expected ErrRegistrationNotFound across tournaments, got %v", err)
	}

	// После закрытия регистрации состав зафиксирован.
	if err := f.tournaments.UpdateStatus(context.Background(), nil, tournament.ID, models.StatusClosed); err != nil {
		t.Fatalf("close tournament: %v", err)
	}
	if err := f.service.RemoveRegistration(context.Background(), 1, tournament.ID, aliceID); !errors.Is(err, ErrRegistrationNotOpen) {
		t.Errorf("expected ErrRegistrationNotOpen after close, got %v", err)
	}
}

func TestManualRegisterRejectsDuplicate(t *testing.T) {
	f := newRegistrationFixture()
	tournament := f.seedOpenTournament(t)

	if _, err := f.service.ManualRegister(context.Background(), 1, tournament.ID, ManualRegisterInput{Name: "Alice"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := f.service.ManualRegister(context.Background(), 1, tournament.ID, ManualRegisterInput{Name: " ALICE "})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !reflect.DeepEqual(conflict.External, []string{"ALICE"}) {
		t.Errorf("unexpected external set: %+v", conflict.External)
	}
}
