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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager()
	defer m.Close()

	s1 := m.Session("u1")
	require.NotNil(t, s1)
	assert.Equal(t, "u1", s1.ID())
	assert.Same(t, s1, m.Session("u1"), "same id returns the same session")
	assert.NotSame(t, s1, m.Session("u2"))
	assert.Equal(t, 2, m.Len())
}

func TestManagerSessionOptions(t *testing.T) {
	m := NewManager(WithSessionOptions(WithPlaybook("pb-shared")))
	defer m.Close()

	s := m.Session("u1")
	assert.Equal(t, "pb-shared", s.PlaybookID())
}

func TestManagerRemove(t *testing.T) {
	m := NewManager()
	defer m.Close()

	m.Session("u1")
	require.Equal(t, 1, m.Len())

	m.Remove("u1")
	assert.Equal(t, 0, m.Len())
	// Removing an unknown id is a no-op.
	m.Remove("ghost")
}

func TestManagerTTLExpiry(t *testing.T) {
	m := NewManager(WithSessionTTL(30*time.Millisecond), WithCleanupInterval(10*time.Millisecond))
	defer m.Close()

	old := m.Session("u1")
	require.Eventually(t, func() bool {
		return m.Len() == 0
	}, 5*time.Second, 5*time.Millisecond)

	// A fresh session replaces the expired one under the same id.
	assert.NotSame(t, old, m.Session("u1"))
}

func TestManagerTTLRefreshedOnAccess(t *testing.T) {
	m := NewManager(WithSessionTTL(80*time.Millisecond), WithCleanupInterval(10*time.Millisecond))
	defer m.Close()

	s := m.Session("u1")
	for i := 0; i < 5; i++ {
		time.Sleep(30 * time.Millisecond)
		assert.Same(t, s, m.Session("u1"), "access keeps the session alive")
	}
}

func TestManagerZeroTTLNeverExpires(t *testing.T) {
	m := NewManager(WithCleanupInterval(10 * time.Millisecond))
	defer m.Close()

	s := m.Session("u1")
	time.Sleep(50 * time.Millisecond)
	assert.Same(t, s, m.Session("u1"))
}

func TestManagerClose(t *testing.T) {
	m := NewManager(WithSessionTTL(time.Minute))
	m.Session("u1")
	m.Session("u2")

	m.Close()
	assert.Equal(t, 0, m.Len())
	m.Close() // idempotent
}
