package builder

import "github.com/Koyo-os/survey-service/internal/entity"

// Selection tracks the question currently focused in an editing session. It
// is kept apart from the document so that focus never shows up in history.
type Selection struct {
	active string
}

// Select focuses the question with the given id.
func (s *Selection) Select(e *Engine, id string) error {
	if !e.Has(id) {
		return entity.NewNotFoundError("question", id)
	}
	s.active = id
	return nil
}

// Active returns the focused question id, if any.
func (s *Selection) Active() (string, bool) {
	return s.active, s.active != ""
}

// Clear drops the focus.
func (s *Selection) Clear() {
	s.active = ""
}

// Reconcile drops the focus when the focused question no longer exists in e,
// e.g. after a delete or an undo. It reports whether the focus was dropped.
func (s *Selection) Reconcile(e *Engine) bool {
	if s.active == "" || e.Has(s.active) {
		return false
	}
	s.active = ""
	return true
}
