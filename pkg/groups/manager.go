// Package groups builds groups from a contact selection and serves the
// group tree with lazily loaded members.
package groups

import (
	"Beacon/pkg/core"
	"Beacon/pkg/models"
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Draft is a validated selection waiting for a group name.
type Draft struct {
	ContactIDs []uint
}

// Node is one group in the tree. Members is nil until the node is expanded.
type Node struct {
	Group    models.Group
	Members  []models.Contact
	Expanded bool
}

type Manager struct {
	repo Repository
	log  zerolog.Logger

	mu       sync.Mutex
	expanded map[uint][]models.Contact
}

func NewManager(repo Repository, log zerolog.Logger) *Manager {
	return &Manager{
		repo:     repo,
		log:      log,
		expanded: make(map[uint][]models.Contact),
	}
}

// PrepareGroupCreation checks that something is selected. It does not touch the store.
// Repeated ids are dropped, the first occurrence keeps its position.
func (m *Manager) PrepareGroupCreation(selected []uint) (Draft, error) {
	if len(selected) == 0 {
		return Draft{}, core.ErrNoSelection
	}
	return Draft{ContactIDs: lo.Uniq(selected)}, nil
}

// CreateGroup stores the draft under name.
func (m *Manager) CreateGroup(ctx context.Context, draft Draft, name string) (models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Group{}, core.ErrEmptyGroupName
	}
	if len(draft.ContactIDs) == 0 {
		return models.Group{}, core.ErrNoSelection
	}

	id, err := m.repo.CreateGroup(ctx, name, draft.ContactIDs)
	if err != nil {
		return models.Group{}, err
	}
	m.log.Info().Uint("group_id", id).Str("name", name).Msg("Group saved")
	return models.Group{ID: id, Name: name}, nil
}

// Tree returns every group. Nodes already expanded carry their members.
func (m *Manager) Tree(ctx context.Context) ([]Node, error) {
	groups, err := m.repo.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Map(groups, func(g models.Group, _ int) Node {
		members, ok := m.expanded[g.ID]
		return Node{Group: g, Members: members, Expanded: ok}
	}), nil
}

// Expand returns the members of a group. The store is queried only while the
// node has no children yet; errors and empty groups are not remembered.
func (m *Manager) Expand(ctx context.Context, groupID uint) ([]models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.expanded[groupID]; ok {
		return members, nil
	}

	members, err := m.repo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(members) > 0 {
		m.expanded[groupID] = members
	}
	m.log.Debug().Uint("group_id", groupID).Int("members", len(members)).Msg("Group expanded")
	return members, nil
}
