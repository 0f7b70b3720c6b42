package session

// Registry tracks every connected session, keyed by remote address.
// Generalizes the teacher's ClientManager: since only the tick
// scheduler's single goroutine ever calls these methods, Registry carries
// no mutex.
type Registry struct {
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a newly accepted session.
func (r *Registry) Add(s *Session) {
	r.sessions[s.RemoteAddr] = s
}

// Remove drops a session from the registry. It does not close the
// session's connection; callers close before or after removing as their
// shutdown sequence requires.
func (r *Registry) Remove(s *Session) {
	delete(r.sessions, s.RemoteAddr)
}

// Get looks up a session by remote address.
func (r *Registry) Get(remoteAddr string) (*Session, bool) {
	s, ok := r.sessions[remoteAddr]
	return s, ok
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	return len(r.sessions)
}

// ForEach calls fn once for every registered session, in an unspecified
// order. fn must not add to or remove from the registry while iterating;
// callers collect sessions to drop and call Remove afterward instead.
func (r *Registry) ForEach(fn func(*Session)) {
	for _, s := range r.sessions {
		fn(s)
	}
}
