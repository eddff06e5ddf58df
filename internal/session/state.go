// Package session holds the per-browser reading log state: the logged-in
// student and their in-memory history, plus the durable identity that
// survives restarts.
package session

import "github.com/noah-isme/sma-reading-log/internal/models"

// State is either Anonymous (Student nil, History empty) or Authenticated.
type State struct {
	Student *models.Student
	History []models.BookEntry
}

// Authenticated reports whether a student is logged in.
func (s State) Authenticated() bool {
	return s.Student != nil
}

// Anonymous returns the logged-out state.
func Anonymous() State {
	return State{History: []models.BookEntry{}}
}

// ApplyLoginSuccess returns the state holding exactly the login response.
func ApplyLoginSuccess(_ State, student models.Student, history []models.BookEntry) State {
	return State{Student: &student, History: copyHistory(history)}
}

// ApplyLogout clears the student and the history.
func ApplyLogout(State) State {
	return Anonymous()
}

// ApplyEntryAdded prepends entry to the history. Anonymous states are
// returned unchanged.
func ApplyEntryAdded(state State, entry models.BookEntry) State {
	if !state.Authenticated() {
		return state
	}
	history := make([]models.BookEntry, 0, len(state.History)+1)
	history = append(history, entry)
	history = append(history, state.History...)
	return State{Student: state.Student, History: history}
}

// clone returns a copy that shares no memory with s.
func (s State) clone() State {
	out := State{History: copyHistory(s.History)}
	if s.Student != nil {
		student := *s.Student
		if s.Student.TotalPageCount != nil {
			total := *s.Student.TotalPageCount
			student.TotalPageCount = &total
		}
		out.Student = &student
	}
	return out
}

func copyHistory(history []models.BookEntry) []models.BookEntry {
	out := make([]models.BookEntry, len(history))
	copy(out, history)
	return out
}
