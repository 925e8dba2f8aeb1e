package memory

import (
	"context"

	"quiz-arena/internal/domain"
)

func (s *Store) CreateSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.Active && existing.UserID == session.UserID && existing.QuizID == session.QuizID {
			return domain.ErrSessionExists
		}
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *Store) FindActiveSession(_ context.Context, userID, quizID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		found domain.Session
		ok    bool
	)
	for _, session := range s.sessions {
		if !session.Active || session.UserID != userID || session.QuizID != quizID {
			continue
		}
		if !ok || session.StartedAt.After(found.StartedAt) {
			found, ok = session, true
		}
	}
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return found, nil
}

// GetSession is used by tests to inspect closed sessions.
func (s *Store) GetSession(id string) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *Store) HasResult(_ context.Context, userID, quizID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasResultLocked(userID, quizID), nil
}

func (s *Store) hasResultLocked(userID, quizID string) bool {
	for _, r := range s.results {
		if r.UserID == userID && r.QuizID == quizID {
			return true
		}
	}
	return false
}

func (s *Store) CompleteAttempt(_ context.Context, result domain.Result, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasResultLocked(result.UserID, result.QuizID) {
		return domain.ErrAlreadyAttempted
	}
	if sessionID != "" {
		session, ok := s.sessions[sessionID]
		if !ok || !session.Active {
			return domain.ErrSessionNotFound
		}
		completedAt := result.CompletedAt
		session.Active = false
		session.CompletedAt = &completedAt
		s.sessions[sessionID] = session
	}
	s.results[result.ID] = result
	return nil
}

func (s *Store) ListResults(_ context.Context, quizID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0, len(s.results))
	for _, r := range s.results {
		if quizID == "" || r.QuizID == quizID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) DeleteResults(_ context.Context, quizID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.results {
		if quizID == "" || r.QuizID == quizID {
			delete(s.results, id)
			n++
		}
	}
	return n, nil
}
