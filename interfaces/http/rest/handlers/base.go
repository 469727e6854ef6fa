package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"kbweb/pkg/auth"
	"kbweb/pkg/errors"
)

// maxBodyBytes bounds request bodies; SCs templates are text
const maxBodyBytes = 1 << 20

type base struct {
	errors *errors.ErrorHandler
	logger *zap.Logger
}

func (b base) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		b.errors.Handle(w, r, errors.NewValidationError("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

func (b base) user(w http.ResponseWriter, r *http.Request) (*auth.UserContext, bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		b.errors.Handle(w, r, errors.NewUnauthorizedError("Unauthorized"))
		return nil, false
	}
	return user, true
}

func (b base) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.logger.Error("Failed to encode response", zap.Error(err))
	}
}
