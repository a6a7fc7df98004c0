package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/bracket-relay/services"
	"github.com/Dosada05/bracket-relay/storage"
)

type WebhookHandler struct {
	reconcileService *services.ReconcileService
	archiver         storage.NotificationArchiver
	logger           *slog.Logger
}

func NewWebhookHandler(rs *services.ReconcileService, archiver storage.NotificationArchiver, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconcileService: rs,
		archiver:         archiver,
		logger:           logger,
	}
}

// ProviderNotificationHandler обрабатывает POST /webhooks/provider.
// Нечитаемый payload подтверждается как no-op, чтобы отправитель не ретраил
// бесконечно то, с чем мы всё равно ничего не сделаем. Ошибка хранилища на
// валидном payload отдаётся как 500 — это триггер ретрая отправителя.
func (h *WebhookHandler) ProviderNotificationHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		h.ackNoop(w, r, "unreadable body")
		return
	}
	r.Body = io.NopCloser(strings.NewReader(string(body)))

	// Архив сырого тела best-effort: сбой архива не влияет на ack.
	if len(body) > 0 {
		key := fmt.Sprintf("webhooks/%s/%d", time.Now().UTC().Format("2006-01-02"), time.Now().UnixNano())
		if archiveErr := h.archiver.Archive(r.Context(), key, body); archiveErr != nil {
			h.logger.Warn("webhook archive failed", slog.Any("error", archiveErr))
		}
	}

	if err := r.ParseForm(); err != nil {
		h.ackNoop(w, r, "unparseable form body")
		return
	}

	matchID, err := strconv.ParseInt(r.PostFormValue("match_id"), 10, 64)
	if err != nil || matchID <= 0 {
		h.ackNoop(w, r, "missing or invalid match_id")
		return
	}

	n := services.Notification{
		MatchID: matchID,
		State:   r.PostFormValue("state"),
	}
	if winnerStr := r.PostFormValue("winner_id"); winnerStr != "" {
		if winnerID, err := strconv.ParseInt(winnerStr, 10, 64); err == nil && winnerID > 0 {
			n.WinnerID = &winnerID
		}
	}
	if scores := r.PostFormValue("scores_csv"); scores != "" {
		n.ScoreCSV = &scores
	}

	// Идентификатор турнира: числовой трактуется как локальный id, иначе —
	// как ссылка на сетку у провайдера.
	tournamentStr := r.PostFormValue("tournament_id")
	if tournamentStr == "" {
		h.ackNoop(w, r, "missing tournament_id")
		return
	}
	if localID, err := strconv.Atoi(tournamentStr); err == nil && localID > 0 {
		n.TournamentID = localID
	} else {
		n.BracketRef = tournamentStr
	}

	applied, err := h.reconcileService.ApplyNotification(r.Context(), n)
	if err != nil {
		// Неизвестный турнир или турнир без сетки: действовать не на чем,
		// подтверждаем как no-op.
		if errors.Is(err, services.ErrTournamentNotFound) || errors.Is(err, services.ErrBracketNotGenerated) {
			h.ackNoop(w, r, err.Error())
			return
		}
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"applied": applied}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *WebhookHandler) ackNoop(w http.ResponseWriter, r *http.Request, reason string) {
	h.logger.Info("webhook acknowledged as no-op", slog.String("reason", reason))
	if err := writeJSON(w, http.StatusOK, jsonResponse{"applied": false, "reason": reason}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
