package handlers

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/zatekoja/opticalqc/pkg/errors"
)

var statusByErrorType = map[apperrors.ErrorType]int{
	apperrors.ErrorTypeNotFound:   http.StatusNotFound,
	apperrors.ErrorTypeValidation: http.StatusBadRequest,
	apperrors.ErrorTypeConflict:   http.StatusConflict,
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// respondWithAppError writes client errors with their message and hides the
// details of everything else behind a 500.
func respondWithAppError(w http.ResponseWriter, err error) {
	status, ok := statusByErrorType[apperrors.TypeOf(err)]
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	appErr, _ := apperrors.As(err)
	respondWithError(w, status, appErr.Message)
}
