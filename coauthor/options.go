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
	"trpc.group/trpc-go/playbook-coauthor-go/canvas"
	"trpc.group/trpc-go/playbook-coauthor-go/transport"
)

// Option configures a Session.
type Option func(*Session)

// WithSessionID sets the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithPlaybook binds a playbook at construction time.
func WithPlaybook(playbookID string) Option {
	return func(s *Session) {
		s.playbookID = playbookID
	}
}

// WithStore sets the graph store the session applies patches to. The store
// is owned by the canvas host; the session only mutates and reads it.
func WithStore(store canvas.Store) Option {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// WithTransport sets the transport client for the session's turns. The
// session assumes exclusive use of it.
func WithTransport(client *transport.Client) Option {
	return func(s *Session) {
		if client != nil {
			s.client = client
		}
	}
}

// WithEndpoint is shorthand for WithTransport with a default client bound
// to the given agent endpoint.
func WithEndpoint(endpoint string) Option {
	return func(s *Session) {
		s.client = transport.NewClient(transport.WithEndpoint(endpoint))
	}
}
