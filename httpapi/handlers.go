package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	authcore "github.com/kwasu-clearance/authcore"
	"github.com/kwasu-clearance/authcore/botcheck"
	"github.com/kwasu-clearance/authcore/internal/clientip"
	"github.com/kwasu-clearance/authcore/middleware"
	"github.com/kwasu-clearance/authcore/session"
)

// Handler is the HTTP adapter for the authentication engine. It holds
// no state of its own beyond the engine reference.
type Handler struct {
	engine *authcore.Engine
}

// NewHandler constructs an HTTP handler bound to the engine.
func NewHandler(engine *authcore.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	BotToken string `json:"bot_token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, string(authcore.CodeValidationFailed), "Request body must be a single JSON object.")
		return
	}

	decision, err := h.engine.Authenticate(r.Context(), authcore.LoginRequest{
		Email:    body.Email,
		Password: body.Password,
		Role:     body.Role,
		BotToken: body.BotToken,
		ClientIP: clientip.FromRequest(r),
	})
	if err != nil {
		// Provider outage is the caller's problem to retry; everything
		// else is ours.
		if errors.Is(err, botcheck.ErrUnavailable) {
			logOperationError(r.Context(), "login", http.StatusServiceUnavailable, string(authcore.CodeVerificationError), "bot verification unavailable", err)
			writeError(w, http.StatusServiceUnavailable, string(authcore.CodeVerificationError), "Could not verify the request. Please try again shortly.")
			return
		}
		logOperationError(r.Context(), "login", http.StatusInternalServerError, "INTERNAL_ERROR", "authentication backend failure", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong. Please try again later.")
		return
	}

	if !decision.OK {
		if decision.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.FormatInt(ceilSeconds(decision.RetryAfter), 10))
		}
		writeError(w, decision.Status, string(decision.Code), decision.Message)
		return
	}

	http.SetCookie(w, decision.Cookie)
	writeSuccess(w, http.StatusOK, map[string]any{
		"user":    decision.User,
		"token":   decision.Token,
		"message": decision.Message,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, session.ClearCookie(h.engine.SessionCookieConfig()))
	writeMessage(w, http.StatusOK, "Logged out.")
}

// me reports the verified session behind a guard. Claims are always
// present here; the guard rejected the request otherwise.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "No active session.")
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"user_id":    claims.Subject,
		"email":      claims.Email,
		"role":       claims.Role,
		"expires_at": expiresAt,
	})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}
