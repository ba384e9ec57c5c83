package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gnicolai/AI-Courses-Generator/internal/api/shared"
	"github.com/gnicolai/AI-Courses-Generator/internal/domain"
	"github.com/gnicolai/AI-Courses-Generator/internal/expansion"
	"github.com/gnicolai/AI-Courses-Generator/internal/generation"
	"github.com/gnicolai/AI-Courses-Generator/internal/service"
	"github.com/gnicolai/AI-Courses-Generator/internal/service/auth"
	"github.com/gnicolai/AI-Courses-Generator/internal/store"
	"github.com/gnicolai/AI-Courses-Generator/internal/task"
	"github.com/go-playground/validator/v10"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the internal error types to clients.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Not found errors
	case store.IsNotFoundError(err),
		errors.Is(err, generation.ErrChapterNotFound),
		errors.Is(err, expansion.ErrNoJob):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, expansion.ErrJobActive),
		errors.Is(err, expansion.ErrInvalidTransition),
		errors.Is(err, expansion.ErrIncompleteCourse),
		store.IsDuplicateError(err):
		return http.StatusConflict

	// Bad request errors
	case errors.As(err, &validationErrs),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, shared.ErrInvalidBody),
		errors.Is(err, expansion.ErrInvalidOptions),
		errors.Is(err, expansion.ErrNoContent),
		errors.Is(err, service.ErrInvalidOutline),
		errors.Is(err, service.ErrNoOutline),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrEmptyOutline),
		errors.Is(err, domain.ErrDuplicateChapterID),
		errors.Is(err, domain.ErrMissingCourseField),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Background queue saturated
	case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	// Client went away
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}

	// Language model provider errors
	switch generation.KindOf(err) {
	case generation.KindAuthentication, generation.KindMalformed:
		return http.StatusBadGateway
	case generation.KindTransient, generation.KindCapacity, generation.KindUnavailable:
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a user-facing message for err that carries no
// internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "Si è verificato un errore imprevisto"
	}

	var incomplete *expansion.IncompleteError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(err)

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token scaduto"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return "Token non valido"

	case errors.Is(err, store.ErrCourseNotFound):
		return "Corso non trovato"
	case errors.Is(err, store.ErrChapterContentNotFound):
		return "Contenuto del capitolo non trovato"
	case errors.Is(err, generation.ErrChapterNotFound):
		return "Capitolo non presente nella struttura del corso"
	case errors.Is(err, expansion.ErrNoJob):
		return "Nessuna espansione per questo corso"
	case errors.Is(err, store.ErrNotFound):
		return "Risorsa non trovata"

	case errors.Is(err, expansion.ErrJobActive):
		return "Un'espansione è già in corso per questo corso"
	case errors.Is(err, expansion.ErrInvalidTransition):
		return "Operazione non consentita nello stato attuale dell'espansione"
	case errors.As(err, &incomplete):
		return fmt.Sprintf(
			"Il corso è completo al %d%%. Genera tutti i capitoli prima di espanderlo.",
			incomplete.Percent,
		)
	case errors.Is(err, expansion.ErrIncompleteCourse):
		return "Genera tutti i capitoli prima di espandere il corso"
	case errors.Is(err, store.ErrDuplicate):
		return "La risorsa esiste già"

	case errors.Is(err, expansion.ErrInvalidOptions):
		return "Opzioni di espansione non valide"
	case errors.Is(err, expansion.ErrNoContent):
		return "Nessun contenuto da espandere per questo corso"
	case errors.Is(err, service.ErrNoOutline):
		return "Il corso non ha ancora una struttura"
	case errors.Is(err, service.ErrInvalidOutline),
		errors.Is(err, domain.ErrEmptyOutline),
		errors.Is(err, domain.ErrDuplicateChapterID):
		return "Struttura del corso non valida"
	case errors.Is(err, domain.ErrMissingCourseField):
		return "Parametri del corso incompleti"
	case errors.Is(err, domain.ErrEmptyContent):
		return "Il contenuto non può essere vuoto"
	case errors.Is(err, domain.ErrInvalidID):
		return "Identificativo non valido"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Corpo della richiesta mancante"
	case errors.Is(err, shared.ErrInvalidBody):
		return "Corpo della richiesta non valido"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, store.ErrInvalidEntity):
		return "Dati non validi"

	case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrQueueClosed):
		return "Il sistema è occupato, riprova più tardi"
	}

	switch generation.KindOf(err) {
	case generation.KindAuthentication:
		return "La chiave API del provider non è valida o è scaduta"
	case generation.KindMalformed:
		return "Il modello ha restituito una risposta non valida, riprova"
	case generation.KindTransient:
		return "Il provider non risponde, riprova più tardi"
	case generation.KindCapacity, generation.KindUnavailable:
		return "Nessun modello disponibile al momento, riprova più tardi"
	}

	return "Si è verificato un errore imprevisto"
}

// SanitizeValidationError turns validator errors into a short message that
// names the first failing field.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		return fmt.Sprintf("Campo %s non valido: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Richiesta non valida"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "campo obbligatorio"
	case "min", "gte", "gt":
		return "valore troppo piccolo"
	case "max", "lte", "lt":
		return "valore troppo grande"
	case "oneof":
		return "valore non ammesso"
	case "dive":
		return "elemento non valido"
	default:
		return "validazione fallita"
	}
}

// HandleAPIError logs err and writes the matching status code with a safe
// message. A non-empty fallback replaces the generic text of 500 responses.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
