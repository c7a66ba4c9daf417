package aegis

import (
	"errors"
	"net/http"
	"time"

	"github.com/evanhutnik/aegis-service/internal/auth"
	t "github.com/evanhutnik/aegis-service/internal/types"
	"github.com/evanhutnik/aegis-service/internal/users"
	"github.com/google/uuid"
)

type AuthResponse struct {
	Success bool    `json:"success"`
	Token   string  `json:"token,omitempty"`
	User    *t.User `json:"user"`
}

type ProfileResponse struct {
	Token string  `json:"token,omitempty"`
	User  *t.User `json:"user"`
}

type SOSResponse struct {
	Success  bool       `json:"success"`
	AlertID  string     `json:"alertId"`
	Message  string     `json:"message"`
	Location t.Location `json:"location"`
}

func (s *Service) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.writeError(w, err)
		return
	}

	user, err := s.accounts.Signup(r.Context(), req.FullName, req.Email, req.Password)
	if errors.Is(err, users.ErrDuplicateEmail) {
		s.writeError(w, CodeError{code: http.StatusBadRequest, msg: "User already exists"})
		return
	} else if err != nil {
		s.Logger.Errorw(err.Error(), "action", "Signup")
		s.writeError(w, CodeError{code: http.StatusInternalServerError, msg: "Internal error creating account"})
		return
	}
	s.Logger.Infow("User signed up", "user_id", user.ID)
	s.writeSession(w, user)
}

func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.writeError(w, err)
		return
	}

	user, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		s.writeError(w, CodeError{code: http.StatusUnauthorized, msg: "Invalid credentials"})
		return
	} else if err != nil {
		s.Logger.Errorw(err.Error(), "action", "Login")
		s.writeError(w, CodeError{code: http.StatusInternalServerError, msg: "Internal error signing in"})
		return
	}
	s.writeSession(w, user)
}

func (s *Service) writeSession(w http.ResponseWriter, user *t.User) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, AuthResponse{Success: true, Token: token, User: user})
}

func (s *Service) MeHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, _ := claims.UserID()
	user, err := s.accounts.User(r.Context(), id)
	if errors.Is(err, users.ErrNotFound) {
		s.writeError(w, CodeError{code: http.StatusUnauthorized, msg: "Not authenticated"})
		return
	} else if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, AuthResponse{Success: true, User: user})
}

func (s *Service) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, _ := claims.UserID()
	user, err := s.accounts.User(r.Context(), id)
	if errors.Is(err, users.ErrNotFound) {
		s.writeError(w, CodeError{code: http.StatusNotFound, msg: "User not found"})
		return
	} else if err != nil {
		s.Logger.Errorw(err.Error(), "action", "Profile")
		s.writeError(w, CodeError{code: http.StatusInternalServerError, msg: "Failed to get user data"})
		return
	}
	s.writeResponse(w, ProfileResponse{User: user})
}

// UpdateProfileHandler changes the caller's name and email. The response
// carries a fresh token since the old one names the previous email.
func (s *Service) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req UpdateProfileRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.writeError(w, err)
		return
	}

	id, _ := claims.UserID()
	user, err := s.accounts.UpdateProfile(r.Context(), id, req.Name, req.Email)
	switch {
	case errors.Is(err, users.ErrNotFound):
		s.writeError(w, CodeError{code: http.StatusNotFound, msg: "User not found"})
		return
	case errors.Is(err, users.ErrDuplicateEmail):
		s.writeError(w, CodeError{code: http.StatusBadRequest, msg: "Email already in use"})
		return
	case err != nil:
		s.Logger.Errorw(err.Error(), "action", "UpdateProfile")
		s.writeError(w, CodeError{code: http.StatusInternalServerError, msg: "Failed to update user data"})
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, ProfileResponse{Token: token, User: user})
}

func (s *Service) SOSHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req SOSRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Timestamp == "" {
		req.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	loc := t.Location{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
	alertID := uuid.NewString()
	s.metrics.SOSAlertsTotal.Inc()
	s.Logger.Warnw("SOS alert received",
		"alert_id", alertID,
		"user_id", claims.Subject,
		"email", claims.Email,
		"latitude", loc.Latitude,
		"longitude", loc.Longitude,
		"timestamp", req.Timestamp)

	s.writeResponse(w, SOSResponse{
		Success:  true,
		AlertID:  alertID,
		Message:  "SOS alert received",
		Location: loc,
	})
}

func (s *Service) authenticate(r *http.Request) (*auth.Claims, error) {
	token, err := auth.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, CodeError{code: http.StatusUnauthorized, msg: "Not authenticated"}
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.Logger.Debugw("Rejected token", "error", err.Error())
		return nil, CodeError{code: http.StatusUnauthorized, msg: "Invalid token"}
	}
	return claims, nil
}
