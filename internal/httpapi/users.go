package httpapi

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/aitoys/voicegateway/internal/store/model"
)

const loginTypePassword = "password"

type registerRequest struct {
	LoginName   string `json:"login_name"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	LoginName string `json:"login_name"`
	Password  string `json:"password"`
}

type authResponse struct {
	Token string    `json:"token"`
	User  *userView `json:"user"`
}

type userView struct {
	ID          string `json:"id"`
	LoginName   string `json:"login_name"`
	DisplayName string `json:"display_name"`
}

func toUserView(u *model.User) *userView {
	return &userView{ID: u.ID, LoginName: u.LoginName, DisplayName: u.DisplayName}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusOK, 400, "malformed request body")
		return
	}
	req.LoginName = strings.TrimSpace(req.LoginName)
	if req.LoginName == "" || req.Password == "" {
		writeErr(w, http.StatusOK, 400, "login_name and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeErr(w, http.StatusOK, 500, "hashing password")
		return
	}

	u, err := s.Store.Users().Create(r.Context(), &model.User{
		LoginName:    req.LoginName,
		LoginType:    loginTypePassword,
		PasswordHash: string(hash),
		DisplayName:  req.DisplayName,
		Status:       model.UserActive,
	})
	if err != nil {
		writeErr(w, http.StatusOK, 409, "account already exists")
		return
	}

	tok, err := issueToken(s.Config.SessionTokenSecret, u.ID, s.clock())
	if err != nil {
		writeErr(w, http.StatusOK, 500, "issuing session token")
		return
	}
	writeOK(w, authResponse{Token: tok, User: toUserView(u)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusOK, 400, "malformed request body")
		return
	}
	req.LoginName = strings.TrimSpace(req.LoginName)

	u, err := s.Store.Users().GetByLogin(r.Context(), req.LoginName, loginTypePassword)
	if err != nil {
		writeErr(w, http.StatusOK, 401, "invalid login_name or password")
		return
	}
	if u.Status != model.UserActive {
		writeErr(w, http.StatusOK, 401, "account is not active")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		writeErr(w, http.StatusOK, 401, "invalid login_name or password")
		return
	}

	tok, err := issueToken(s.Config.SessionTokenSecret, u.ID, s.clock())
	if err != nil {
		writeErr(w, http.StatusOK, 500, "issuing session token")
		return
	}
	writeOK(w, authResponse{Token: tok, User: toUserView(u)})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r.Context())
	if !ok {
		writeUnauthorized(w, "missing bearer token")
		return
	}
	u, err := s.Store.Users().Get(r.Context(), userID)
	if err != nil {
		writeErr(w, http.StatusOK, 404, "user not found")
		return
	}
	writeOK(w, toUserView(u))
}
