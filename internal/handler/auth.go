package handler

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tmoreland/chorepoints/internal/auth"
	"github.com/tmoreland/chorepoints/internal/middleware"
	"github.com/tmoreland/chorepoints/internal/model"
	"github.com/tmoreland/chorepoints/internal/store"
)

type AuthHandler struct {
	families *store.FamilyStore
	profiles *store.ProfileStore
	issuer   *auth.TokenIssuer
	secure   bool
	logger   *slog.Logger
}

func NewAuthHandler(fs *store.FamilyStore, ps *store.ProfileStore, issuer *auth.TokenIssuer, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{families: fs, profiles: ps, issuer: issuer, secure: secureCookies, logger: logger}
}

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FamilyName string `json:"family_name,omitempty"`
	JoinCode   string `json:"join_code,omitempty"`
	Role       string `json:"role,omitempty"`
}

// Register handles POST /api/auth/register. Either family_name (create a
// new family, caller becomes its admin) or join_code (join an existing
// one) must be supplied.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.FirstName) == "" {
		writeError(w, http.StatusBadRequest, "email, password, and first_name are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	existing, err := h.profiles.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("check existing email", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	var familyID int64
	role := model.RoleChild

	switch {
	case req.FamilyName != "":
		code, err := generateJoinCode()
		if err != nil {
			h.logger.Error("generate join code", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
			return
		}
		family, err := h.families.Create(strings.TrimSpace(req.FamilyName), code)
		if err != nil {
			h.logger.Error("create family", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
			return
		}
		familyID = family.ID
		role = model.RoleAdmin
	case req.JoinCode != "":
		family, err := h.families.GetByJoinCode(strings.ToUpper(strings.TrimSpace(req.JoinCode)))
		if err != nil {
			h.logger.Error("lookup join code", "error", err)
			writeError(w, http.StatusInternalServerError, "registration failed")
			return
		}
		if family == nil {
			writeError(w, http.StatusNotFound, "unknown join code")
			return
		}
		familyID = family.ID
		if req.Role == model.RoleParent {
			role = model.RoleParent
		}
	default:
		writeError(w, http.StatusBadRequest, "family_name or join_code is required")
		return
	}

	profile, err := h.profiles.Create(familyID, req.Email, string(hash), strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), role)
	if err != nil {
		h.logger.Error("create profile", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if role == model.RoleAdmin {
		if err := h.families.SetAdmin(familyID, profile.ID); err != nil {
			h.logger.Error("set family admin", "error", err)
		}
	}

	if err := h.setTokenCookie(w, profile); err != nil {
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	profile, err := h.profiles.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("lookup profile", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if profile == nil || !profile.Active {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := h.setTokenCookie(w, profile); err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Logout handles POST /api/auth/logout by clearing the token cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get profile", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, profile *model.Profile) error {
	token, err := h.issuer.Issue(profile.ID, profile.FamilyID, profile.Role)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Join codes skip easily-confused characters (0/O, 1/I).
const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateJoinCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}
