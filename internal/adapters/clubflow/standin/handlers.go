package standin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"fitrit/internal/adapters/clubflow"
	"fitrit/internal/domain/viewer"
)

type ctxKey struct{}

// Handler returns the ClubFlow API surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login/", s.handleLogin)
		r.Post("/social/google/", s.handleGoogle)
		r.Post("/token/refresh/", s.handleRefresh)
		r.Post("/logout/", s.handleLogout)
		r.Post("/password-reset/", s.handlePasswordReset)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/api/me/bookings/", s.handleBookings)
		r.Get("/api/me/membership/", s.handleMembership)
		r.Get("/api/me/invoices/", s.handleInvoices)
		r.Patch("/api/me/", s.handleUpdateMe)

		r.Group(func(r chi.Router) {
			r.Use(requireTier(viewer.HasAdminAccess))
			r.Get("/api/admin/classes/", s.handleClasses)
			r.Get("/api/admin/members/", s.handleMembers)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireTier(viewer.IsOwner))
			r.Get("/api/admin/staff/", s.handleStaff)
			r.Get("/api/admin/reports/summary/", s.handleReport)
		})
	})

	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		acct, err := s.verify(token)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}
		s.mu.Lock()
		p := acct.profile
		s.mu.Unlock()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, p)))
	})
}

func requireTier(allowed func(string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(profileFrom(r).UserType) {
				writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func profileFrom(r *http.Request) viewer.Profile {
	p, _ := r.Context().Value(ctxKey{}).(viewer.Profile)
	return p
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &body) {
		return
	}
	res, err := s.authenticate(body.Email, body.Password)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGoogle trusts the id_token claims; the portal verifies the token with
// Google before it gets here.
func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDToken string `json:"id_token"`
	}
	if !decode(w, r, &body) {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(body.IDToken, claims); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed id_token")
		return
	}
	email, _ := claims["email"].(string)
	verified, _ := claims["email_verified"].(bool)
	name, _ := claims["name"].(string)
	if email == "" || !verified {
		writeDetail(w, http.StatusBadRequest, "Google account has no verified email")
		return
	}
	res, err := s.federated(email, name)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "Could not sign in")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if !decode(w, r, &body) {
		return
	}
	pair, err := s.rotate(body.Refresh)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if !decode(w, r, &body) {
		return
	}
	s.revoke(body.Refresh)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &body) {
		return
	}
	if strings.Contains(body.Email, "@") {
		s.mu.Lock()
		s.resets = append(s.resets, strings.ToLower(strings.TrimSpace(body.Email)))
		s.mu.Unlock()
	}
	writeDetail(w, http.StatusOK, "Password reset e-mail has been sent.")
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]clubflow.Booking{}, s.data.bookings[profileFrom(r).ID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	m, ok := s.data.membership[profileFrom(r).ID]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "No membership found.")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleInvoices(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]clubflow.Invoice{}, s.data.invoices[profileFrom(r).ID]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var body clubflow.ProfileUpdate
	if !decode(w, r, &body) {
		return
	}
	patch := viewer.Patch{FirstName: body.FirstName, FullName: body.FullName, ProfilePhotoURL: body.ProfilePhotoURL}
	if err := patch.Validate(); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	id := profileFrom(r).ID
	s.mu.Lock()
	var updated viewer.Profile
	for _, a := range s.accounts {
		if a.profile.ID == id {
			a.profile = a.profile.Apply(patch)
			updated = a.profile
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]clubflow.ClassSession{}, s.data.classes...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]clubflow.MemberSummary{}, s.data.members...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStaff(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var out []clubflow.StaffMember
	for _, p := range seedProfiles() {
		a := s.accounts[p.Email]
		if a == nil || !viewer.HasAdminAccess(a.profile.UserType) {
			continue
		}
		out = append(out, clubflow.StaffMember{
			ID: a.profile.ID, FullName: a.profile.FullName, Email: a.profile.Email,
			UserType: a.profile.UserType, IsTrainer: a.profile.IsTrainer,
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.data.report
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body")
		return false
	}
	return true
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
