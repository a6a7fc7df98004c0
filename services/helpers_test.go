package services

import (
	"testing"

	"github.com/Dosada05/bracket-relay/models"
)

func TestStateRankOrdering(t *testing.T) {
	if !(stateRank("anything else") < stateRank(models.MatchStatePending) &&
		stateRank(models.MatchStatePending) < stateRank(models.MatchStateOpen) &&
		stateRank(models.MatchStateOpen) < stateRank(models.MatchStateComplete)) {
		t.Fatal("state ranks are not totally ordered")
	}
	// Ранг не зависит от регистра и пробелов вокруг.
	if stateRank(" Complete ") != stateRank(models.MatchStateComplete) {
		t.Error("state rank should normalize case and whitespace")
	}
}

func TestNormalizeName(t *testing.T) {
	if normalizeName("  Alice ") != "alice" {
		t.Errorf("got %q", normalizeName("  Alice "))
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := [][2]models.TournamentStatus{
		{models.StatusDraft, models.StatusOpen},
		{models.StatusOpen, models.StatusClosed},
		{models.StatusOpen, models.StatusCompleted},
		{models.StatusClosed, models.StatusOpen},
		{models.StatusClosed, models.StatusCompleted},
		{models.StatusOpen, models.StatusOpen},
	}
	for _, pair := range allowed {
		if !isValidStatusTransition(pair[0], pair[1]) {
			t.Errorf("%s -> %s should be allowed", pair[0], pair[1])
		}
	}
	forbidden := [][2]models.TournamentStatus{
		{models.StatusDraft, models.StatusClosed},
		{models.StatusDraft, models.StatusCompleted},
		{models.StatusCompleted, models.StatusOpen},
		{models.StatusClosed, models.StatusDraft},
	}
	for _, pair := range forbidden {
		if isValidStatusTransition(pair[0], pair[1]) {
			t.Errorf("%s -> %s should be rejected", pair[0], pair[1])
		}
	}
}
