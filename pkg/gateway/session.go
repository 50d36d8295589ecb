package gateway

import "sync/atomic"

// Session holds the single process-wide access token. Reads and writes go
// through an atomic value so a reader never observes a half-written token;
// every state change is immediately visible to subsequent reads.
type Session struct {
	token atomic.Value // string
}

func NewSession() *Session {
	s := &Session{}
	s.token.Store("")
	return s
}

// SetToken installs a new access token, replacing any previous one.
func (s *Session) SetToken(token string) {
	s.token.Store(token)
}

// ClearToken removes the current token, returning the session to the
// unauthenticated state.
func (s *Session) ClearToken() {
	s.token.Store("")
}

func (s *Session) IsAuthenticated() bool {
	return s.token.Load().(string) != ""
}

// CurrentToken returns the held token and whether one is set.
func (s *Session) CurrentToken() (string, bool) {
	t := s.token.Load().(string)
	return t, t != ""
}
