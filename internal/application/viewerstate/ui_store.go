package viewerstate

import (
	"sync"

	"fitrit/internal/domain/ui"
)

// UIStore holds one viewer's ephemeral chrome state. Nothing here is persisted.
type UIStore struct {
	mu    sync.Mutex
	state ui.State
}

// NewUIStore creates a UI store with everything closed.
func NewUIStore() *UIStore {
	return &UIStore{}
}

// Snapshot returns the current UI state.
func (u *UIStore) Snapshot() ui.State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

func (u *UIStore) ToggleNav() ui.State {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state.ToggleNav()
	return u.state
}

func (u *UIStore) ToggleSidebar() ui.State {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state.ToggleSidebar()
	return u.state
}

// OpenModal replaces any active modal with id.
func (u *UIStore) OpenModal(id string) (ui.State, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.state.OpenModal(id); err != nil {
		return u.state, err
	}
	return u.state, nil
}

func (u *UIStore) CloseModal() ui.State {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.state.CloseModal()
	return u.state
}

// Reset closes everything. Called on sign-out.
func (u *UIStore) Reset() {
	u.mu.Lock()
	u.state = ui.State{}
	u.mu.Unlock()
}
