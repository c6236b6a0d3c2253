package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SecretsService is the part of service.SecretsService the handlers use.
type SecretsService interface {
	Backend() string
	Keys() []string
	Len() int
	Lookup(key string) (string, bool)
	Redacted(key string) string
	RedactString(msg string) string
	Reload(ctx context.Context) error
}

// Handlers serves the admin API.
type Handlers struct {
	Secrets SecretsService
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Secrets int    `json:"secrets"`
}

type secretView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type reloadResponse struct {
	Secrets int `json:"secrets"`
}

// Health reports liveness and the number of loaded secrets.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Backend: h.Secrets.Backend(),
		Secrets: h.Secrets.Len(),
	})
}

// ListSecrets returns every loaded key with its redacted value.
func (h *Handlers) ListSecrets(w http.ResponseWriter, _ *http.Request) {
	keys := h.Secrets.Keys()
	out := make([]secretView, 0, len(keys))
	for _, k := range keys {
		out = append(out, secretView{Key: k, Value: h.Secrets.Redacted(k)})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetSecret returns one key with its redacted value.
func (h *Handlers) GetSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := h.Secrets.Lookup(key); !ok {
		writeError(w, http.StatusNotFound, "secret not found")
		return
	}
	writeJSON(w, http.StatusOK, secretView{Key: key, Value: h.Secrets.Redacted(key)})
}

// ReloadSecrets re-reads the secrets source. A failed reload keeps the
// previous secrets and answers 500 with the load error, masked against the
// secrets still loaded.
func (h *Handlers) ReloadSecrets(w http.ResponseWriter, r *http.Request) {
	if err := h.Secrets.Reload(r.Context()); err != nil {
		msg := h.Secrets.RedactString(err.Error())
		slog.Error("secrets reload failed", "error", msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Secrets: h.Secrets.Len()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
