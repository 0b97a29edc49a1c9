package user

import (
	"context"

	"github.com/sos-api/internal/domain"
)

// communityRelationship labels broadcast recipients in the ledger.
const communityRelationship = "community member"

type directoryStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	ListActive(ctx context.Context) ([]domain.User, error)
}

// Directory resolves alert recipients from the user table.
type Directory struct {
	repo directoryStore
}

func NewDirectory(repo directoryStore) *Directory {
	return &Directory{repo: repo}
}

// ActiveUsersExcept returns every enabled user other than userID.
func (d *Directory) ActiveUsersExcept(ctx context.Context, userID string) ([]domain.Recipient, error) {
	users, err := d.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Recipient, 0, len(users))
	for _, u := range users {
		if u.UserID == userID {
			continue
		}
		out = append(out, domain.Recipient{Name: u.Name, Phone: u.Phone, Relationship: communityRelationship})
	}
	return out, nil
}

// EmergencyContacts returns userID's contacts in the order they were added.
func (d *Directory) EmergencyContacts(ctx context.Context, userID string) ([]domain.Recipient, error) {
	u, err := d.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Recipient, 0, len(u.EmergencyContacts))
	for _, c := range u.EmergencyContacts {
		out = append(out, domain.Recipient{Name: c.Name, Phone: c.Phone, Relationship: c.Relationship})
	}
	return out, nil
}
