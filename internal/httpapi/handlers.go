package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"altwatch/internal/fingerprint"
	"altwatch/internal/service"

	"go.uber.org/zap"
)

type Handlers struct {
	service service.VerificationService
	logger  *zap.Logger
}

func NewHandlers(svc service.VerificationService, logger *zap.Logger) *Handlers {
	return &Handlers{
		service: svc,
		logger:  logger,
	}
}

// KeyHandler отдаёт только действующий секрет для генерации ссылок ботом
func (h *Handlers) KeyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"key": h.service.CurrentKey()})
}

func (h *Handlers) IsVerifiedHandler(w http.ResponseWriter, r *http.Request) {
	verified, err := h.service.IsVerified(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidUserID) {
			http.Error(w, "missing or invalid user id", http.StatusBadRequest)
			return
		}
		h.logger.Error("verification check failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]bool{"verified": verified})
}

func (h *Handlers) CollectHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	clientAddr := fingerprint.Normalize(r.Header.Get("X-Forwarded-For"), r.RemoteAddr)

	classification, err := h.service.Redeem(r.Context(),
		query.Get("userId"),
		query.Get("key"),
		query.Get("from"),
		clientAddr,
		r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUserID):
			http.Error(w, "missing or invalid user id", http.StatusBadRequest)
		case errors.Is(err, service.ErrCrawlerProbe):
			// Префетч краулера: пустой успешный ответ, без следов в базе
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, service.ErrForbidden):
			http.Error(w, "access denied: your key is expired or invalid, please request a new link", http.StatusForbidden)
		case errors.Is(err, service.ErrAlreadyVerified):
			http.Error(w, "you are already verified", http.StatusForbidden)
		default:
			h.logger.Error("redemption failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(classification.Message()))
}

func (h *Handlers) LinkHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := decodeQueryUserID(r)
	if err != nil {
		http.Error(w, "missing or invalid user id", http.StatusBadRequest)
		return
	}

	link, err := h.service.IssueLink(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUserID):
			http.Error(w, "missing or invalid user id", http.StatusBadRequest)
		case errors.Is(err, service.ErrAlreadyVerified):
			http.Error(w, "you are already verified", http.StatusForbidden)
		default:
			h.logger.Error("link issuance failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, map[string]string{"link": link})
}

func (h *Handlers) DuplicatesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}

	accounts, err := h.service.FindDuplicates(r.Context(), userID)
	if err != nil {
		h.logger.Error("duplicate search failed", zap.Error(err), zap.String("user_id", userID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, duplicatesResponse{
		Found:    len(accounts) > 0,
		Accounts: accounts,
	})
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type duplicatesResponse struct {
	Found    bool     `json:"found"`
	Accounts []string `json:"accounts"`
}

func decodeQueryUserID(r *http.Request) (string, error) {
	encoded := r.URL.Query().Get("userId")
	if encoded == "" {
		return "", service.ErrInvalidUserID
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) == 0 {
		return "", service.ErrInvalidUserID
	}
	return string(decoded), nil
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
