package ui

import "errors"

// Modal identifiers the layout knows how to render.
const (
	ModalSignOut      = "sign-out"
	ModalClassDetails = "class-details"
	ModalFreeze       = "freeze-membership"
)

// ValidModals contains all modal identifiers that may be opened.
var ValidModals = []string{ModalSignOut, ModalClassDetails, ModalFreeze}

// ErrUnknownModal is returned when opening a modal the layout cannot render.
var ErrUnknownModal = errors.New("unknown modal")

// State is a viewer's transient interaction state. It is never persisted.
type State struct {
	MobileNavOpen bool
	SidebarOpen   bool
	ActiveModal   string
}

// ToggleNav flips the mobile navigation menu.
func (s *State) ToggleNav() {
	s.MobileNavOpen = !s.MobileNavOpen
}

// ToggleSidebar flips the dashboard sidebar.
func (s *State) ToggleSidebar() {
	s.SidebarOpen = !s.SidebarOpen
}

// OpenModal makes id the single active modal, replacing any open one.
// PRE: id is one of ValidModals
// POST: ActiveModal == id
func (s *State) OpenModal(id string) error {
	for _, m := range ValidModals {
		if m == id {
			s.ActiveModal = id
			return nil
		}
	}
	return ErrUnknownModal
}

// CloseModal clears the active modal.
func (s *State) CloseModal() {
	s.ActiveModal = ""
}

// HasModal reports whether a modal is open.
func (s State) HasModal() bool {
	return s.ActiveModal != ""
}
