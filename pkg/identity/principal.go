package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreatePrincipal hashes password and inserts a new principal, failing
// with ErrDuplicatePrincipal if the username is taken.
func (s *Store) CreatePrincipal(ctx context.Context, username, password string) (*Principal, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	p := &Principal{ID: uuid.New().String(), Username: username, PasswordHash: hash, CreatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return nil, ErrDuplicatePrincipal
		}
		return nil, err
	}
	return p, nil
}

// GetPrincipal looks up a principal by username, preloading its groups.
func (s *Store) GetPrincipal(ctx context.Context, username string) (*Principal, error) {
	var p Principal
	err := s.db.WithContext(ctx).Preload("Groups").Where("username = ?", username).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListPrincipals returns every principal, preloading groups.
func (s *Store) ListPrincipals(ctx context.Context) ([]*Principal, error) {
	var out []*Principal
	if err := s.db.WithContext(ctx).Preload("Groups").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// SetPassword re-hashes and stores a new password for username.
func (s *Store) SetPassword(ctx context.Context, username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&Principal{}).Where("username = ?", username).Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

// DeletePrincipal removes a principal and its group memberships.
func (s *Store) DeletePrincipal(ctx context.Context, username string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p Principal
		if err := tx.Where("username = ?", username).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPrincipalNotFound
			}
			return err
		}
		if err := tx.Model(&p).Association("Groups").Clear(); err != nil {
			return err
		}
		return tx.Delete(&p).Error
	})
}

// Authenticate validates a username/password pair against the stored
// bcrypt hash. This is the server side of the wire Authenticate call
// (§4.5): the caller has already reduced the 128-byte token to a
// plaintext password (see pkg/authserver's decode step).
func (s *Store) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	p, err := s.GetPrincipal(ctx, username)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(password, p.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return p, nil
}

// WhichGroups returns the names of every group username belongs to,
// the server side of the wire WhichGroups call (§4.5).
func (s *Store) WhichGroups(ctx context.Context, username string) ([]string, error) {
	p, err := s.GetPrincipal(ctx, username)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		names[i] = g.Name
	}
	return names, nil
}

// CreateGroup inserts a new, empty group.
func (s *Store) CreateGroup(ctx context.Context, name string) (*Group, error) {
	g := &Group{ID: uuid.New().String(), Name: name, CreatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(g).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return nil, ErrDuplicateGroup
		}
		return nil, err
	}
	return g, nil
}

// ListGroups returns every group.
func (s *Store) ListGroups(ctx context.Context) ([]*Group, error) {
	var out []*Group
	if err := s.db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// AddToGroup adds username to group, creating the membership row if
// it does not already exist.
func (s *Store) AddToGroup(ctx context.Context, username, groupName string) error {
	p, err := s.GetPrincipal(ctx, username)
	if err != nil {
		return err
	}
	var g Group
	if err := s.db.WithContext(ctx).Where("name = ?", groupName).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	return s.db.WithContext(ctx).Model(p).Association("Groups").Append(&g)
}

// RemoveFromGroup removes username's membership in group, if present.
func (s *Store) RemoveFromGroup(ctx context.Context, username, groupName string) error {
	p, err := s.GetPrincipal(ctx, username)
	if err != nil {
		return err
	}
	var g Group
	if err := s.db.WithContext(ctx).Where("name = ?", groupName).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	return s.db.WithContext(ctx).Model(p).Association("Groups").Delete(&g)
}
