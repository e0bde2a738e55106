// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package handle manages transient, process-local references to in-memory
// binary blobs. Every handle created must be revoked exactly once when the
// owning entity is discarded; unrevoked handles pin their blob for the life
// of the process. The manager keeps create/revoke counters so tests can
// assert that the two sides of that contract stay paired.
package handle

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/heifconv/pkg/types"
)

// Manager issues and revokes blob handles.
type Manager struct {
	mu      sync.Mutex
	blobs   map[types.Handle][]byte
	created int
	revoked int
}

// NewManager returns an empty handle manager.
func NewManager() *Manager {
	return &Manager{blobs: make(map[types.Handle][]byte)}
}

// Create registers blob and returns a fresh handle for it. Creation is a
// purely local allocation and never fails.
func (m *Manager) Create(blob []byte) types.Handle {
	h := types.Handle(uuid.NewString())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[h] = blob
	m.created++
	return h
}

// Resolve returns the blob a handle refers to.
func (m *Manager) Resolve(h types.Handle) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[h]
	return blob, ok
}

// Revoke releases a handle. Revoking a handle that was never issued, or was
// already revoked, is a caller bug and returns an error rather than
// silently succeeding, so accounting tests can catch double revocation.
func (m *Manager) Revoke(h types.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[h]; !ok {
		return fmt.Errorf("revoking unknown handle %q", h)
	}
	delete(m.blobs, h)
	m.revoked++
	return nil
}

// Created returns the number of handles issued so far.
func (m *Manager) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// Revoked returns the number of handles released so far.
func (m *Manager) Revoked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked
}

// Outstanding returns the number of live handles.
func (m *Manager) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
