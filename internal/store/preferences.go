package store

import (
	"fmt"

	"github.com/daxxac/talk-tile-buddy/internal/board"
)

// Preferences returns the settings record.
func (s *Store) Preferences() board.Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Preferences
}

// UpdatePreferences shallow-merges patch into the settings record.
func (s *Store) UpdatePreferences(patch board.PreferencePatch) error {
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	if patch.IsZero() {
		return nil
	}
	s.apply("prefs.update", func(st *State) effect {
		before := st.Preferences
		patch.Apply(&st.Preferences)
		if st.Preferences == before {
			return unchanged
		}
		return durable
	})
	if patch.HighContrast != nil {
		s.pushContrast(*patch.HighContrast)
	}
	return nil
}

// ToggleCaregiverMode flips caregiver mode and returns the new value.
func (s *Store) ToggleCaregiverMode() bool {
	var enabled bool
	s.apply("caregiver.toggle", func(st *State) effect {
		st.Preferences.CaregiverMode = !st.Preferences.CaregiverMode
		enabled = st.Preferences.CaregiverMode
		return durable
	})
	return enabled
}

// SetHighContrast stores the flag and pushes it to the presentation contrast sink.
func (s *Store) SetHighContrast(enabled bool) {
	s.apply("contrast", func(st *State) effect {
		if st.Preferences.HighContrast == enabled {
			return unchanged
		}
		st.Preferences.HighContrast = enabled
		return durable
	})
	s.pushContrast(enabled)
}

// SetLoading marks a collaborator-owned long-running operation.
func (s *Store) SetLoading(loading bool) {
	s.apply("loading", func(st *State) effect {
		if st.IsLoading == loading {
			return unchanged
		}
		st.IsLoading = loading
		return transient
	})
}

// SetError sets or, with an empty message, clears the shared error field.
func (s *Store) SetError(message string) {
	s.apply("error", func(st *State) effect {
		if st.Error == message {
			return unchanged
		}
		st.Error = message
		return transient
	})
}

func (s *Store) pushContrast(enabled bool) {
	if s.contrast != nil {
		s.contrast.SetHighContrast(enabled)
	}
}
