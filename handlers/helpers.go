package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/bracket-relay/provider"
	"github.com/Dosada05/bracket-relay/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Ошибка программиста: передан не указатель
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	if err != nil {
		return err
	}

	return nil
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	idStr := chi.URLParam(r, param)
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s parameter", param)
	}
	return id, nil
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error", slog.String("path", r.URL.Path), slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, payload interface{}) {
	errorResponse(w, r, http.StatusConflict, payload)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func badGatewayResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadGateway, err.Error())
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var conflictErr *services.ConflictError
	var stageErr *services.StageError

	switch {
	// Конфликт регистрации несёт оба набора дубликатов.
	case errors.As(err, &conflictErr):
		conflictResponse(w, r, jsonResponse{
			"message":             conflictErr.Error(),
			"internal_duplicates": conflictErr.Internal,
			"external_duplicates": conflictErr.External,
		})

	// Сбой этапа конвейера корректировки: вид определяется вложенной ошибкой.
	case errors.As(err, &stageErr):
		mapStageErrorToHTTP(w, r, stageErr)

	// Не найдено
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrRegistrationNotFound):
		notFoundResponse(w, r)

	// Невалидные данные / бизнес-правила
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentInvalidCapacity),
		errors.Is(err, services.ErrRegistrationNamesRequired),
		errors.Is(err, services.ErrTooManyPrimaryPicks),
		errors.Is(err, services.ErrScoreRequired),
		errors.Is(err, services.ErrWinnerRequired),
		errors.Is(err, services.ErrNoRegistrations),
		errors.Is(err, services.ErrTournamentInvalidStatus),
		errors.Is(err, services.ErrTournamentInvalidStatusTransition),
		errors.Is(err, services.ErrTournamentNotDraft),
		errors.Is(err, services.ErrBracketNotGenerated):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrBracketAlreadyGenerated):
		conflictResponse(w, r, err.Error())

	// Доступ
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrRegistrationNotOpen):
		forbiddenResponse(w, r, err.Error())
	case errors.Is(err, services.ErrCredentialMissing):
		unauthorizedResponse(w, r, err.Error())

	// Ошибки провайдера: текст диагностики сохраняется для оператора.
	case errors.Is(err, provider.ErrInvalidCredential):
		unauthorizedResponse(w, r, err.Error())
	case errors.Is(err, provider.ErrValidationFailed):
		errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, provider.ErrNotFound):
		notFoundResponse(w, r)
	case errors.Is(err, provider.ErrUnavailable):
		badGatewayResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}

func mapStageErrorToHTTP(w http.ResponseWriter, r *http.Request, stageErr *services.StageError) {
	payload := jsonResponse{
		"stage":   string(stageErr.Stage),
		"message": stageErr.Error(),
	}
	switch {
	case errors.Is(stageErr, provider.ErrInvalidCredential):
		errorResponse(w, r, http.StatusUnauthorized, payload)
	case errors.Is(stageErr, provider.ErrValidationFailed):
		errorResponse(w, r, http.StatusUnprocessableEntity, payload)
	case errors.Is(stageErr, provider.ErrNotFound):
		errorResponse(w, r, http.StatusNotFound, payload)
	case errors.Is(stageErr, provider.ErrUnavailable):
		errorResponse(w, r, http.StatusBadGateway, payload)
	default:
		errorResponse(w, r, http.StatusInternalServerError, payload)
	}
}
