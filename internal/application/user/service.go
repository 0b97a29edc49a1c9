package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sos-api/internal/domain"
	"github.com/sos-api/internal/pkg/id"
	"github.com/sos-api/internal/pkg/phone"
	"github.com/sos-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName  = "name"
	fieldPhone = "phone"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Identity(ctx context.Context, userID string) (domain.Identity, error)
	ListContacts(ctx context.Context, userID string) ([]domain.EmergencyContact, error)
	AddContact(ctx context.Context, userID string, req domain.AddContactRequest) (*domain.EmergencyContact, error)
	RemoveContact(ctx context.Context, userID, contactID string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SetEmergencyContacts(ctx context.Context, userID string, contacts []domain.EmergencyContact) error
}

type service struct {
	repo userStore
}

func NewService(repo userStore) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:            id.New(),
		Name:              req.Name,
		Email:             req.Email,
		Phone:             phone.Normalize(req.Phone),
		IDNumber:          req.IDNumber,
		PasswordHash:      string(hash),
		Role:              domain.RoleUser,
		EmergencyContacts: []domain.EmergencyContact{},
		Enable:            1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Phone != nil {
		updates[fieldPhone] = phone.Normalize(*req.Phone)
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, userID)
	}
	if err := s.repo.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

// Identity loads the creator snapshot used when raising an alert.
func (s *service) Identity(ctx context.Context, userID string) (domain.Identity, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return domain.Identity{}, err
	}
	return u.Identity(), nil
}

func (s *service) ListContacts(ctx context.Context, userID string) ([]domain.EmergencyContact, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.EmergencyContacts == nil {
		return []domain.EmergencyContact{}, nil
	}
	return u.EmergencyContacts, nil
}

func (s *service) AddContact(ctx context.Context, userID string, req domain.AddContactRequest) (*domain.EmergencyContact, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.EmergencyContacts) >= domain.MaxEmergencyContacts {
		return nil, fmt.Errorf("at most %d emergency contacts allowed: %w", domain.MaxEmergencyContacts, domain.ErrBadRequest)
	}
	normalized := phone.Normalize(req.Phone)
	if normalized == u.Phone {
		return nil, fmt.Errorf("cannot add yourself as a contact: %w", domain.ErrBadRequest)
	}
	for _, c := range u.EmergencyContacts {
		if c.Phone == normalized {
			return nil, fmt.Errorf("contact with this phone already exists: %w", domain.ErrConflict)
		}
	}
	c := domain.EmergencyContact{
		ContactID:    id.New(),
		Name:         req.Name,
		Phone:        normalized,
		Relationship: req.Relationship,
		AddedAt:      time.Now().UTC(),
	}
	contacts := append(u.EmergencyContacts, c)
	if err := s.repo.SetEmergencyContacts(ctx, userID, contacts); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *service) RemoveContact(ctx context.Context, userID, contactID string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	kept := make([]domain.EmergencyContact, 0, len(u.EmergencyContacts))
	for _, c := range u.EmergencyContacts {
		if c.ContactID != contactID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(u.EmergencyContacts) {
		return fmt.Errorf("contact %s: %w", contactID, domain.ErrNotFound)
	}
	return s.repo.SetEmergencyContacts(ctx, userID, kept)
}
