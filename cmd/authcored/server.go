package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/metrics/export/prometheus"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/MrEthical07/authcore/permission"
)

type accountView struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role"`
	Confirmed bool      `json:"confirmed"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func viewOf(a *account.Account) accountView {
	return accountView{
		Email:     a.Identity,
		Username:  a.DisplayName,
		Avatar:    a.Avatar,
		Role:      a.Role.String(),
		Confirmed: a.Confirmed,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

type server struct {
	engine *authcore.Engine
	logger *slog.Logger
}

// routes wires the HTTP surface of authcored.
func (s *server) routes(withMetrics bool) http.Handler {
	mux := http.NewServeMux()
	guard := middleware.Guard(s.engine)
	admins := func(h http.HandlerFunc) http.Handler {
		return guard(middleware.RequireRoles(s.engine, permission.Admins)(h))
	}

	mux.HandleFunc("POST /auth/signup", s.signup)
	mux.HandleFunc("POST /auth/login", s.login)
	mux.HandleFunc("POST /auth/refresh", s.refresh)
	mux.Handle("POST /auth/logout", guard(http.HandlerFunc(s.logout)))
	mux.HandleFunc("GET /auth/confirmed_email/{token}", s.confirmEmail)
	mux.HandleFunc("POST /auth/request_email", s.requestEmail)

	mux.Handle("GET /users/me", guard(http.HandlerFunc(s.me)))
	mux.Handle("PATCH /users/me", guard(http.HandlerFunc(s.updateMe)))
	mux.Handle("POST /users/me/password", guard(http.HandlerFunc(s.changePassword)))
	mux.HandleFunc("GET /users/{identity}", s.profile)
	mux.Handle("PUT /users/{identity}/role", admins(s.setRole))
	mux.Handle("PUT /users/{identity}/active", admins(s.setActive))

	mux.HandleFunc("GET /healthz", s.health)

	if withMetrics {
		mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(s.engine).Handler())
	}
	return mux
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if middleware.StatusCode(err) == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	middleware.WriteError(w, err)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return authcore.ErrInvalidRequest
	}
	return nil
}

func requestContext(r *http.Request) *http.Request {
	ctx := authcore.WithClientIP(r.Context(), middleware.ClientIP(r))
	if id := r.Header.Get("X-Request-Id"); id != "" {
		ctx = authcore.WithRequestID(ctx, id)
	}
	return r.WithContext(ctx)
}

func (s *server) signup(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)
	var req authcore.SignupRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	acct, err := s.engine.Signup(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, viewOf(acct))
}

// login accepts the OAuth2 password form: username carries the email.
func (s *server) login(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, authcore.ErrInvalidRequest)
		return
	}
	pair, err := s.engine.Login(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pair)
}

// refresh takes the refresh token as bearer credentials.
func (s *server) refresh(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)
	token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		s.fail(w, r, authcore.ErrTokenMalformed)
		return
	}
	pair, err := s.engine.Refresh(r.Context(), token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pair)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFromContext(r.Context())
	if err := s.engine.Logout(r.Context(), acct); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) confirmEmail(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.ConfirmEmail(r.Context(), r.PathValue("token"))
	if err != nil {
		// Every token problem is a bad verification link.
		if authcore.IsAuthenticationError(err) {
			err = authcore.ErrInvalidRequest
		}
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": res.String()})
}

func (s *server) requestEmail(w http.ResponseWriter, r *http.Request) {
	r = requestContext(r)
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.engine.RequestEmailVerification(r.Context(), body.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"message": "check your email for confirmation"})
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, viewOf(acct))
}

func (s *server) updateMe(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFromContext(r.Context())
	var upd authcore.ProfileUpdate
	if err := decodeBody(r, &upd); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.engine.UpdateProfile(r.Context(), acct, upd)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(out))
}

func (s *server) changePassword(w http.ResponseWriter, r *http.Request) {
	acct, _ := middleware.AccountFromContext(r.Context())
	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.engine.ChangePassword(r.Context(), acct, body.OldPassword, body.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) profile(w http.ResponseWriter, r *http.Request) {
	acct, err := s.engine.Profile(r.Context(), r.PathValue("identity"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(acct))
}

func (s *server) setRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.AccountFromContext(r.Context())
	var body struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	role, err := permission.ParseRole(body.Role)
	if err != nil {
		s.fail(w, r, authcore.ErrInvalidRequest)
		return
	}
	if err := s.engine.SetRole(r.Context(), actor, r.PathValue("identity"), role); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) setActive(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.AccountFromContext(r.Context())
	var body struct {
		Active bool `json:"active"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.engine.SetActive(r.Context(), actor, r.PathValue("identity"), body.Active); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// health answers 200 even when Redis is down: the engine falls back to the
// store, so the status only reports the degradation.
func (s *server) health(w http.ResponseWriter, r *http.Request) {
	h := s.engine.Health(r.Context())
	status := "ok"
	if h.CacheConfigured && !h.RedisAvailable {
		status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":           status,
		"redis_latency_ms": h.RedisLatency.Milliseconds(),
	})
}
