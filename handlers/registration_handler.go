package handlers

import (
	"net/http"

	"github.com/Dosada05/bracket-relay/middleware"
	"github.com/Dosada05/bracket-relay/services"
)

type RegistrationHandler struct {
	registrationService *services.RegistrationService
}

func NewRegistrationHandler(rs *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: rs}
}

// BulkRegisterHandler обрабатывает POST /tournaments/{tournamentID}/registrations
func (h *RegistrationHandler) BulkRegisterHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Mode        string   `json:"mode"`
		Names       []string `json:"names"`
		Fingerprint string   `json:"fingerprint"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.registrationService.BulkRegister(r.Context(), currentUserID, tournamentID, services.BulkRegisterInput{
		Mode:        input.Mode,
		Names:       input.Names,
		Fingerprint: input.Fingerprint,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ManualRegisterHandler обрабатывает POST /tournaments/{tournamentID}/registrations/single
func (h *RegistrationHandler) ManualRegisterHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name         string   `json:"name"`
		Mode         string   `json:"mode"`
		Fingerprint  string   `json:"fingerprint"`
		PrimaryPicks []string `json:"primary_picks"`
		ReservePicks []string `json:"reserve_picks"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.ManualRegister(r.Context(), currentUserID, tournamentID, services.ManualRegisterInput{
		Name:         input.Name,
		Mode:         input.Mode,
		Fingerprint:  input.Fingerprint,
		PrimaryPicks: input.PrimaryPicks,
		ReservePicks: input.ReservePicks,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveHandler обрабатывает DELETE /tournaments/{tournamentID}/registrations/{registrationID}
func (h *RegistrationHandler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	registrationID, err := getIDFromURL(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.registrationService.RemoveRegistration(r.Context(), currentUserID, tournamentID, registrationID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListHandler обрабатывает GET /tournaments/{tournamentID}/registrations
func (h *RegistrationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	regs, err := h.registrationService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
