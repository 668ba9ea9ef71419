// Package db owns the SQLite connection and the contact/group store.
package db

import (
	"Beacon/pkg/core"
	"Beacon/pkg/models"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// UnknownValue replaces a missing contact name or phone on import.
const UnknownValue = "Unknown"

var validate = validator.New()

// Store is the query surface for contacts, groups and memberships.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewStore wraps an opened database.
func NewStore(db *gorm.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

// ListContacts returns every contact in storage order.
func (s *Store) ListContacts(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&contacts).Error; err != nil {
		return nil, core.NewStoreError("list contacts", err)
	}
	return contacts, nil
}

// ListGroups returns every group in storage order.
func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&groups).Error; err != nil {
		return nil, core.NewStoreError("list groups", err)
	}
	return groups, nil
}

// CreateGroup inserts a group and its memberships in one transaction.
// The name is trimmed; duplicate contact ids are collapsed. Nothing is written
// when validation fails or when a contact id does not exist.
func (s *Store) CreateGroup(ctx context.Context, name string, contactIDs []uint) (uint, error) {
	req := models.GroupRequest{
		Name:       strings.TrimSpace(name),
		ContactIDs: lo.Uniq(contactIDs),
	}
	if err := validateGroupRequest(req); err != nil {
		return 0, err
	}

	group := models.Group{Name: req.Name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var known int64
		if err := tx.Model(&models.Contact{}).Where("id IN ?", req.ContactIDs).Count(&known).Error; err != nil {
			return core.NewStoreError("count contacts", err)
		}
		if int(known) != len(req.ContactIDs) {
			return fmt.Errorf("%w: %d of %d selected contacts do not exist", core.ErrUnknownContact, len(req.ContactIDs)-int(known), len(req.ContactIDs))
		}

		if err := tx.Create(&group).Error; err != nil {
			return core.NewStoreError("insert group", err)
		}

		links := lo.Map(req.ContactIDs, func(id uint, _ int) models.GroupContact {
			return models.GroupContact{GroupID: group.ID, ContactID: id}
		})
		if err := tx.Create(&links).Error; err != nil {
			return core.NewStoreError("insert group contacts", err)
		}
		return nil
	})
	if err != nil {
		if core.KindOf(err) == core.KindUnknown {
			err = core.NewStoreError("commit group", err)
		}
		return 0, err
	}

	s.log.Info().Uint("group_id", group.ID).Str("name", group.Name).Int("members", len(req.ContactIDs)).Msg("Group created")
	return group.ID, nil
}

// ListMembers returns the contacts of a group. An unknown group yields an empty slice.
func (s *Store) ListMembers(ctx context.Context, groupID uint) ([]models.Contact, error) {
	contacts := make([]models.Contact, 0)
	err := s.db.WithContext(ctx).
		Joins("JOIN group_contacts ON group_contacts.contact_id = contacts.id").
		Where("group_contacts.group_id = ?", groupID).
		Order("contacts.id ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, core.NewStoreError("list members", err)
	}
	return contacts, nil
}

// CountGroups returns the number of groups.
func (s *Store) CountGroups(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Group{}).Count(&n).Error; err != nil {
		return 0, core.NewStoreError("count groups", err)
	}
	return n, nil
}

// SaveContacts imports contacts the way the login executable does: entries
// with neither name nor phone are skipped, a missing field becomes "Unknown".
// It returns the number of rows written.
func (s *Store) SaveContacts(ctx context.Context, contacts []models.Contact) (int, error) {
	rows := lo.FilterMap(contacts, func(c models.Contact, _ int) (models.Contact, bool) {
		name, phone := strings.TrimSpace(c.Name), strings.TrimSpace(c.Phone)
		if name == "" && phone == "" {
			return models.Contact{}, false
		}
		return models.Contact{
			Name:  lo.Ternary(name == "", UnknownValue, name),
			Phone: lo.Ternary(phone == "", UnknownValue, phone),
		}, true
	})
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, 100).Error; err != nil {
		return 0, core.NewStoreError("save contacts", err)
	}
	s.log.Info().Int("saved", len(rows)).Int("skipped", len(contacts)-len(rows)).Msg("Contacts have been saved to the database")
	return len(rows), nil
}

func validateGroupRequest(req models.GroupRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			switch {
			case fe.StructField() == "Name":
				return core.ErrEmptyGroupName
			case fe.StructField() == "ContactIDs":
				return core.ErrNoSelection
			case strings.HasPrefix(fe.StructField(), "ContactIDs["):
				return fmt.Errorf("%w: invalid id %v", core.ErrUnknownContact, fe.Value())
			}
		}
	}
	return fmt.Errorf("%w: %v", core.ErrValidation, err)
}
