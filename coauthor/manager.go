//
// Tencent is pleased to support the open source community by making playbook-coauthor-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// playbook-coauthor-go is licensed under the Apache License Version 2.0.
//
//

package coauthor

import (
	"sync"
	"time"
)

const defaultCleanupInterval = time.Minute

// sessionWithTTL wraps a session with its expiration time.
type sessionWithTTL struct {
	session   *Session
	expiredAt time.Time
}

// isExpired checks if the given time has passed.
func isExpired(expiredAt time.Time) bool {
	return !expiredAt.IsZero() && time.Now().After(expiredAt)
}

// Manager owns the live sessions of a host process, keyed by session id.
// Sessions idle past the configured TTL are aborted and dropped by a
// background sweep.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionWithTTL

	ttl             time.Duration
	cleanupInterval time.Duration
	sessionOpts     []Option

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	once          sync.Once
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSessionTTL sets how long an idle session survives. Zero disables
// expiry.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithCleanupInterval overrides how often expired sessions are swept.
func WithCleanupInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.cleanupInterval = interval
		}
	}
}

// WithSessionOptions sets the options applied to every session the manager
// creates.
func WithSessionOptions(opts ...Option) ManagerOption {
	return func(m *Manager) {
		m.sessionOpts = append(m.sessionOpts, opts...)
	}
}

// NewManager creates a Manager.
func NewManager(opt ...ManagerOption) *Manager {
	m := &Manager{
		sessions:        make(map[string]*sessionWithTTL),
		cleanupInterval: defaultCleanupInterval,
		cleanupDone:     make(chan struct{}),
	}
	for _, o := range opt {
		o(m)
	}
	if m.ttl > 0 {
		m.cleanupTicker = time.NewTicker(m.cleanupInterval)
		go m.cleanupLoop()
	}
	return m
}

// Session returns the session with the given id, creating it on first use.
// Access refreshes the session's TTL.
func (m *Manager) Session(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok && !isExpired(s.expiredAt) {
		s.expiredAt = m.expiry()
		return s.session
	}
	sess := NewSession(append([]Option{WithSessionID(id)}, m.sessionOpts...)...)
	m.sessions[id] = &sessionWithTTL{session: sess, expiredAt: m.expiry()}
	return sess
}

// Remove aborts and drops the session with the given id.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.session.AbortStream()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the sweep and aborts every session. Safe to call more than
// once.
func (m *Manager) Close() {
	m.once.Do(func() {
		if m.cleanupTicker != nil {
			m.cleanupTicker.Stop()
			close(m.cleanupDone)
		}
		m.mu.Lock()
		sessions := m.sessions
		m.sessions = make(map[string]*sessionWithTTL)
		m.mu.Unlock()
		for _, s := range sessions {
			s.session.AbortStream()
		}
	})
}

func (m *Manager) expiry() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(m.ttl)
}

func (m *Manager) cleanupLoop() {
	for {
		select {
		case <-m.cleanupTicker.C:
			m.sweep()
		case <-m.cleanupDone:
			return
		}
	}
}

// sweep drops every expired session.
func (m *Manager) sweep() {
	m.mu.Lock()
	var expired []*sessionWithTTL
	for id, s := range m.sessions {
		if isExpired(s.expiredAt) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range expired {
		s.session.AbortStream()
	}
}
