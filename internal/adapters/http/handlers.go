package web

import (
	"errors"
	"log/slog"
	"net/http"

	"fitrit/internal/adapters/http/middleware"
	"fitrit/internal/application/orchestrators"
	"fitrit/internal/domain/guard"
	"fitrit/internal/domain/ui"
)

// handlePage serves a markdown marketing page.
func (s *Server) handlePage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, name, http.StatusOK, s.page(r, title))
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "not_found", http.StatusNotFound, s.page(r, "Page not found"))
}

func (s *Server) handleContactForm(w http.ResponseWriter, r *http.Request) {
	d := s.page(r, "Contact")
	if r.URL.Query().Get("sent") == "1" {
		d.Notice = "Thanks, we will get back to you within one working day."
	}
	d.Data = contactForm{Topics: orchestrators.EnquiryTopics}
	s.render(w, r, "contact", http.StatusOK, d)
}

type contactForm struct {
	Topics []string
	Input  orchestrators.ContactInput
}

// handleContact handles POST /contact
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.ContactInput{
		Name:    r.FormValue("Name"),
		Email:   r.FormValue("Email"),
		Topic:   r.FormValue("Topic"),
		Message: r.FormValue("Message"),
	}
	deps := orchestrators.ContactDeps{
		Sender:      s.deps.Email,
		StudioInbox: s.deps.Config.Email.StudioInbox,
	}
	err := orchestrators.ExecuteContactEnquiry(r.Context(), input, deps)
	if err == nil {
		http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
		return
	}

	d := s.page(r, "Contact")
	d.Data = contactForm{Topics: orchestrators.EnquiryTopics, Input: input}
	switch {
	case errors.Is(err, orchestrators.ErrEnquiryName), errors.Is(err, orchestrators.ErrEnquiryEmail),
		errors.Is(err, orchestrators.ErrEnquiryMessage), errors.Is(err, orchestrators.ErrEnquiryTooLong),
		errors.Is(err, orchestrators.ErrEnquiryTopic):
		d.Error = err.Error()
		s.render(w, r, "contact", http.StatusUnprocessableEntity, d)
	default:
		slog.Error("contact_event", "event", "send_failed", "error", err)
		d.Error = "We could not send your message just now. Please try again or call the studio."
		s.render(w, r, "contact", http.StatusServiceUnavailable, d)
	}
}

type loginForm struct {
	Email string
	Next  string
}

// handleLoginForm handles GET /login. Signed-in viewers go straight to their
// landing screen; until the session is known the loading screen is shown.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	snap := snapshotOf(r)
	if snap.IsLoading {
		s.loading.ServeHTTP(w, r)
		return
	}
	if snap.IsAuthenticated {
		http.Redirect(w, r, guard.Landing(snap.User, s.targets), http.StatusSeeOther)
		return
	}
	next, _ := guard.SafeReturnPath(r.URL.Query().Get(guard.ReturnParam))
	d := s.page(r, "Sign in")
	d.Data = loginForm{Next: next}
	switch r.URL.Query().Get("error") {
	case "google_denied":
		d.Error = orchestrators.ErrGoogleDenied.Error()
	case "google_failed":
		d.Error = orchestrators.ErrGoogleFailed.Error()
	case "expired":
		d.Notice = "Your session expired. Please sign in again."
	}
	if r.URL.Query().Get("cleared") == "1" {
		d.Notice = "This browser no longer remembers you."
	}
	if r.URL.Query().Get("reset") == "1" {
		d.Notice = "If that address has an account, a reset link is on its way."
	}
	s.render(w, r, "login", http.StatusOK, d)
}

// handleLogin handles POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	v, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		internalError(w, errors.New("login without viewer"))
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	input := orchestrators.SignInInput{
		Email:    r.FormValue("Email"),
		Password: r.FormValue("Password"),
		ReturnTo: r.FormValue("Next"),
	}
	deps := orchestrators.SignInDeps{
		Client:  s.deps.ClubFlow,
		Session: v.Session,
		Targets: s.targets,
	}

	result, err := orchestrators.ExecuteSignIn(r.Context(), input, deps)
	if err != nil {
		d := s.page(r, "Sign in")
		d.Data = loginForm{Email: input.Email, Next: input.ReturnTo}
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, orchestrators.ErrInvalidCredentials), errors.Is(err, orchestrators.ErrUnsupportedAccount):
			d.Error = err.Error()
		case errors.Is(err, orchestrators.ErrServiceUnavailable):
			d.Error = err.Error()
			status = http.StatusServiceUnavailable
		default:
			internalError(w, err)
			return
		}
		s.render(w, r, "login", status, d)
		return
	}
	http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
}

// handleLogout handles POST /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	v, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		internalError(w, errors.New("logout without viewer"))
		return
	}
	deps := orchestrators.SignOutDeps{
		Client:  s.deps.ClubFlow,
		Session: v.Session,
		UI:      v.UI,
	}
	if err := orchestrators.ExecuteSignOut(r.Context(), v.ID, deps); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, s.targets.SignIn, http.StatusSeeOther)
}

// handleForgetBrowser handles POST /forget-browser: sign out and wipe this browser's stored data.
func (s *Server) handleForgetBrowser(w http.ResponseWriter, r *http.Request) {
	v, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		internalError(w, errors.New("forget browser without viewer"))
		return
	}
	deps := orchestrators.ForgetBrowserDeps{
		Client:  s.deps.ClubFlow,
		Session: v.Session,
		UI:      v.UI,
	}
	if err := orchestrators.ExecuteForgetBrowser(r.Context(), v.ID, deps); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, s.targets.SignIn+"?cleared=1", http.StatusSeeOther)
}

func (s *Server) googleDeps(r *http.Request) (orchestrators.GoogleSignInDeps, string, bool) {
	v, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		return orchestrators.GoogleSignInDeps{}, "", false
	}
	return orchestrators.GoogleSignInDeps{
		Provider:   s.deps.Google,
		Challenges: s.deps.Challenges,
		Client:     s.deps.ClubFlow,
		Session:    v.Session,
		Targets:    s.targets,
	}, v.ID, true
}

// handleGoogleStart handles GET /auth/google
func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	deps, viewerID, ok := s.googleDeps(r)
	if !ok {
		internalError(w, errors.New("google sign-in without viewer"))
		return
	}
	input := orchestrators.BeginGoogleSignInInput{
		ViewerID: viewerID,
		ReturnTo: r.URL.Query().Get(guard.ReturnParam),
	}
	consent, err := orchestrators.ExecuteBeginGoogleSignIn(input, deps)
	if errors.Is(err, orchestrators.ErrGoogleDisabled) {
		s.handleNotFound(w, r)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, consent, http.StatusFound)
}

// handleGoogleCallback handles GET /auth/google/callback
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	deps, viewerID, ok := s.googleDeps(r)
	if !ok {
		internalError(w, errors.New("google callback without viewer"))
		return
	}
	q := r.URL.Query()
	input := orchestrators.CompleteGoogleSignInInput{
		ViewerID: viewerID,
		State:    q.Get("state"),
		Code:     q.Get("code"),
		Error:    q.Get("error"),
	}
	result, err := orchestrators.ExecuteCompleteGoogleSignIn(r.Context(), input, deps)
	switch {
	case err == nil:
		http.Redirect(w, r, result.Redirect, http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrGoogleDisabled):
		s.handleNotFound(w, r)
	case errors.Is(err, orchestrators.ErrGoogleDenied):
		http.Redirect(w, r, s.targets.SignIn+"?error=google_denied", http.StatusSeeOther)
	case errors.Is(err, orchestrators.ErrGoogleFailed), errors.Is(err, orchestrators.ErrInvalidCredentials),
		errors.Is(err, orchestrators.ErrUnsupportedAccount), errors.Is(err, orchestrators.ErrServiceUnavailable):
		http.Redirect(w, r, s.targets.SignIn+"?error=google_failed", http.StatusSeeOther)
	default:
		internalError(w, err)
	}
}

func (s *Server) handleForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "forgot_password", http.StatusOK, s.page(r, "Reset your password"))
}

// handleForgotPassword handles POST /forgot-password
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	err := orchestrators.ExecuteForgotPassword(r.Context(), r.FormValue("Email"), s.deps.ClubFlow)
	if err == nil {
		http.Redirect(w, r, s.targets.SignIn+"?reset=1", http.StatusSeeOther)
		return
	}
	d := s.page(r, "Reset your password")
	d.Error = err.Error()
	status := http.StatusUnprocessableEntity
	if errors.Is(err, orchestrators.ErrServiceUnavailable) {
		status = http.StatusServiceUnavailable
	}
	s.render(w, r, "forgot_password", status, d)
}

// backTo returns the viewer to the page the UI action was posted from.
func backTo(w http.ResponseWriter, r *http.Request) {
	back, ok := guard.SafeReturnPath(r.FormValue("Back"))
	if !ok {
		back = "/"
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

func (s *Server) handleToggleNav(w http.ResponseWriter, r *http.Request) {
	if v, ok := middleware.ViewerFromContext(r.Context()); ok {
		v.UI.ToggleNav()
	}
	backTo(w, r)
}

func (s *Server) handleToggleSidebar(w http.ResponseWriter, r *http.Request) {
	if v, ok := middleware.ViewerFromContext(r.Context()); ok {
		v.UI.ToggleSidebar()
	}
	backTo(w, r)
}

func (s *Server) handleOpenModal(w http.ResponseWriter, r *http.Request) {
	v, ok := middleware.ViewerFromContext(r.Context())
	if !ok {
		internalError(w, errors.New("ui action without viewer"))
		return
	}
	if _, err := v.UI.OpenModal(r.FormValue("Modal")); err != nil {
		if errors.Is(err, ui.ErrUnknownModal) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		internalError(w, err)
		return
	}
	backTo(w, r)
}

func (s *Server) handleCloseModal(w http.ResponseWriter, r *http.Request) {
	if v, ok := middleware.ViewerFromContext(r.Context()); ok {
		v.UI.CloseModal()
	}
	backTo(w, r)
}
