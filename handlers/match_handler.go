package handlers

import (
	"net/http"

	"github.com/Dosada05/bracket-relay/middleware"
	"github.com/Dosada05/bracket-relay/services"
)

type MatchHandler struct {
	reconcileService *services.ReconcileService
}

func NewMatchHandler(rs *services.ReconcileService) *MatchHandler {
	return &MatchHandler{reconcileService: rs}
}

// ListByTournamentHandler обрабатывает GET /tournaments/{tournamentID}/matches
func (h *MatchHandler) ListByTournamentHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.reconcileService.ListMatches(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CorrectionHandler обрабатывает POST /matches/correction — ручную
// корректировку счёта администратором.
func (h *MatchHandler) CorrectionHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		BracketRef   string `json:"bracket_ref"`
		TournamentID int    `json:"tournament_id"`
		MatchID      int64  `json:"match_id"`
		ScoreCSV     string `json:"score_csv"`
		WinnerID     int64  `json:"winner_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.reconcileService.SubmitCorrection(r.Context(), currentUserID, services.CorrectionInput{
		BracketRef:   input.BracketRef,
		TournamentID: input.TournamentID,
		MatchID:      input.MatchID,
		ScoreCSV:     input.ScoreCSV,
		WinnerID:     input.WinnerID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
