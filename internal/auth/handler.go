package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-credit/meridian/internal/platform/httpx"
	"github.com/meridian-credit/meridian/internal/shared"
)

// Handler exposes login and logout.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *SessionManager
	validate *validator.Validate
	secure   bool
}

// NewHandler constructs the auth handler. secure controls the cookie flag and
// should be true outside development.
func NewHandler(logger *slog.Logger, service *Service, sessions *SessionManager, secure bool) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		sessions: sessions,
		validate: validator.New(),
		secure:   secure,
	}
}

// LoginRequest carries the credential pair.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginResponse returns the bearer token and the signed-in identity.
type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       int64  `json:"id"`
		Fullname string `json:"fullname"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	} `json:"user"`
}

// MountRoutes attaches /auth endpoints. Login is rate limited per IP to slow
// down credential stuffing.
func (h *Handler) MountRoutes(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Post("/auth/login", h.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.Me)
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	token, err := h.sessions.Create(r.Context(), shared.Actor{
		ID:   user.ID,
		Name: user.Fullname,
		Role: user.Role,
	})
	if err != nil {
		h.logger.Error("session create failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(h.sessions.TTL()),
	})

	var resp LoginResponse
	resp.Token = token
	resp.User.ID = user.ID
	resp.User.Fullname = user.Fullname
	resp.User.Email = user.Email
	resp.User.Role = user.Role
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(CookieName); err == nil {
			token = cookie.Value
		}
	}
	if token != "" {
		if err := h.sessions.Destroy(r.Context(), token); err != nil {
			h.logger.Warn("session destroy failed", slog.Any("error", err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	httpx.JSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

// Me echoes the actor behind the current session.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if actor == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":   actor.ID,
		"name": actor.Name,
		"role": actor.Role,
	})
}
