//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_group_repository.go -package=mocks
package groups

import (
	"Beacon/pkg/models"
	"context"
)

// Repository is the part of the store the group manager needs.
type Repository interface {
	ListGroups(ctx context.Context) ([]models.Group, error)
	ListMembers(ctx context.Context, groupID uint) ([]models.Contact, error)
	CreateGroup(ctx context.Context, name string, contactIDs []uint) (uint, error)
}
