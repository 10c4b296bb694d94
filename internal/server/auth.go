package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/me/sweeply/pkg/model"
	"golang.org/x/crypto/bcrypt"
)

const ctxKeyUser ctxKey = "user"

// UserFromContext extracts the authenticated user from request context.
func UserFromContext(ctx context.Context) *model.User {
	if u, ok := ctx.Value(ctxKeyUser).(*model.User); ok {
		return u
	}
	return nil
}

// newToken returns a 32-byte random hex token. Tokens are opaque; all
// validity state lives in the auth_tokens table.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// mintTokenPair creates and persists a fresh access/refresh pair for userID.
func (s *Server) mintTokenPair(ctx context.Context, userID string) (model.TokenPair, error) {
	access, err := newToken()
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, err := newToken()
	if err != nil {
		return model.TokenPair{}, err
	}

	now := time.Now().UTC()
	records := []*model.AuthToken{
		{Token: access, UserID: userID, Kind: model.TokenKindAccess, ExpiresAt: now.Add(s.accessTTL), CreatedAt: now},
		{Token: refresh, UserID: userID, Kind: model.TokenKindRefresh, ExpiresAt: now.Add(s.refreshTTL), CreatedAt: now},
	}
	for _, rec := range records {
		if err := s.store.SaveToken(ctx, rec); err != nil {
			return model.TokenPair{}, fmt.Errorf("save token: %w", err)
		}
	}
	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// authMiddleware requires a valid access token and loads the account
// into the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := RequestIDFromContext(r.Context())

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(w, reqID, http.StatusUnauthorized,
				model.NewUnauthorizedError("authentication required"))
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		tok, err := s.store.GetToken(r.Context(), raw)
		if err != nil {
			respondError(w, reqID, http.StatusInternalServerError,
				&model.APIError{Code: model.ErrInternal, Message: err.Error()})
			return
		}
		if tok == nil || tok.Kind != model.TokenKindAccess || !tok.IsValid() {
			respondError(w, reqID, http.StatusUnauthorized,
				model.NewUnauthorizedError("invalid or expired token"))
			return
		}

		user, err := s.store.GetUser(r.Context(), tok.UserID)
		if err != nil {
			respondError(w, reqID, http.StatusInternalServerError,
				&model.APIError{Code: model.ErrInternal, Message: err.Error()})
			return
		}
		if user == nil {
			respondError(w, reqID, http.StatusUnauthorized,
				model.NewUnauthorizedError("account no longer exists"))
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminOnly rejects non-admin accounts. Must run after authMiddleware.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := RequestIDFromContext(r.Context())

		user := UserFromContext(r.Context())
		if user == nil || !user.IsAdmin() {
			respondError(w, reqID, http.StatusForbidden,
				&model.APIError{Code: model.ErrForbidden, Message: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleLogin exchanges email/password credentials for a token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("email and password are required"))
		return
	}

	user, hash, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	// Same response for unknown account, unactivated account, and bad
	// password, so login cannot be used to probe for accounts.
	if user == nil || !user.Activated ||
		bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		s.logger.Info("login rejected", "request_id", reqID)
		respondError(w, reqID, http.StatusUnauthorized,
			model.NewUnauthorizedError("invalid credentials"))
		return
	}

	pair, err := s.mintTokenPair(r.Context(), user.ID)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	s.logger.Info("login", "user_id", user.ID, "request_id", reqID)
	respondOK(w, reqID, pair)
}

// handleRefreshTokens rotates a token pair. The presented refresh token
// is revoked whether or not a new pair is issued, so a stolen token can
// be used at most once.
func (s *Server) handleRefreshTokens(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("refresh_token is required"))
		return
	}

	tok, err := s.store.GetToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if tok == nil || tok.Kind != model.TokenKindRefresh || !tok.IsValid() {
		s.logger.Info("refresh rejected", "request_id", reqID)
		respondError(w, reqID, http.StatusUnauthorized,
			model.NewUnauthorizedError("invalid refresh token"))
		return
	}

	if err := s.store.RevokeToken(r.Context(), req.RefreshToken); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	pair, err := s.mintTokenPair(r.Context(), tok.UserID)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	s.logger.Debug("tokens rotated", "user_id", tok.UserID, "request_id", reqID)
	respondOK(w, reqID, pair)
}

// handleActivate redeems an activation code, sets the account password,
// and returns the first token pair so the client can log straight in.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Code     string `json:"code"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid request body"))
		return
	}
	if req.Code == "" || len(req.Password) < 8 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("activation code and a password of at least 8 characters are required",
				model.FieldError{Field: "password", Message: "minimum 8 characters"}))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	user, err := s.store.ActivateUser(r.Context(), req.Code, string(hash))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if user == nil {
		respondError(w, reqID, http.StatusUnauthorized,
			model.NewUnauthorizedError("invalid activation code"))
		return
	}

	pair, err := s.mintTokenPair(r.Context(), user.ID)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	s.logger.Info("account activated", "user_id", user.ID, "request_id", reqID)
	respondOK(w, reqID, pair)
}
