package http

import (
	"errors"
	"net/http"

	"bilancio/internal/auth"
	"bilancio/internal/log"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered", log.FieldUserID, u.ID)
	writeJSON(w, http.StatusCreated, toUserJSON(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, expires, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenJSON{Token: token, ExpiresAt: expires})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.store.GetUser(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(u))
}

func (s *Server) handleSetMyBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := parseBudget(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	uid := currentUser(r)
	if err := s.store.SetUserBudget(r.Context(), uid, b); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.store.GetUser(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserJSON(u))
}

// Browser session endpoints.

type loginPage struct {
	Error string
	Email string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", loginPage{})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", loginPage{Error: "Invalid form"})
		return
	}
	email := r.PostForm.Get("email")
	token, _, err := s.auth.Login(r.Context(), email, r.PostForm.Get("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.render(w, r, http.StatusUnauthorized, "login.html", loginPage{Error: "Wrong email or password", Email: email})
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Login failed", log.FieldError, err)
		s.render(w, r, http.StatusInternalServerError, "login.html", loginPage{Error: "Login unavailable, try again later", Email: email})
		return
	}
	http.SetCookie(w, auth.SessionCookie(token, int(s.opts.TokenTTL.Seconds()), s.opts.SecureCookies))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.SessionCookie("", -1, s.opts.SecureCookies))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
