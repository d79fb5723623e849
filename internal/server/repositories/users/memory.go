package users

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
)

// MemoryRepository keeps users in process memory. One mutex guards all
// records, which gives every operation the same atomicity the single-row
// statements have in PostgreSQL.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*models.User
	emails map[string]string
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*models.User),
		emails: make(map[string]string),
		now:    time.Now,
	}
}

func clone(u *models.User) *models.User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	if u.ResetPasswordToken != nil {
		s := *u.ResetPasswordToken
		c.ResetPasswordToken = &s
	}
	if u.ResetPasswordExpires != nil {
		t := *u.ResetPasswordExpires
		c.ResetPasswordExpires = &t
	}
	return &c
}

func (r *MemoryRepository) get(id string) (*models.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.emails[u.Email]; taken {
		return nil, common.ErrDuplicateEmail
	}
	if _, taken := r.byID[u.ID]; taken {
		return nil, fmt.Errorf("db error: duplicate id %q", u.ID)
	}
	if u.VisionTokens < 0 {
		return nil, fmt.Errorf("db error: negative vision_tokens")
	}

	r.byID[u.ID] = clone(u)
	r.emails[u.Email] = u.ID
	return u, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.PublicUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return clone(u).Public(), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.PublicUser, error) {
	u, err := r.GetCredentialByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (r *MemoryRepository) GetCredentialByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.emails[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) Save(ctx context.Context, u *models.User) (*models.PublicUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.get(u.ID)
	if err != nil {
		return nil, err
	}
	if u.Email != cur.Email {
		if _, taken := r.emails[u.Email]; taken {
			return nil, common.ErrDuplicateEmail
		}
	}

	next := clone(u)
	next.VisionTokens = cur.VisionTokens
	next.CreatedAt = cur.CreatedAt

	delete(r.emails, cur.Email)
	r.emails[next.Email] = next.ID
	r.byID[next.ID] = next

	return clone(next).Public(), nil
}

func (r *MemoryRepository) List(ctx context.Context, f models.ListFilter, s models.Sort) iter.Seq2[*models.PublicUser, error] {
	return func(yield func(*models.PublicUser, error) bool) {
		if !s.Valid() {
			yield(nil, fmt.Errorf("%w: unknown sort field %q", common.ErrValidation, s.Field))
			return
		}

		needle := common.NormalizeEmail(f.EmailContains)

		r.mu.Lock()
		snapshot := make([]*models.PublicUser, 0, len(r.byID))
		for _, u := range r.byID {
			if f.Admin != nil && u.IsAdmin != *f.Admin {
				continue
			}
			if f.Banned != nil && u.IsBanned != *f.Banned {
				continue
			}
			if f.Active != nil && u.IsActive != *f.Active {
				continue
			}
			if needle != "" && !strings.Contains(u.Email, needle) {
				continue
			}
			snapshot = append(snapshot, clone(u).Public())
		}
		r.mu.Unlock()

		slices.SortFunc(snapshot, func(a, b *models.PublicUser) int {
			if c := compareBy(s, a, b); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})

		for _, u := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(u, nil) {
				return
			}
		}
	}
}

// compareBy orders by the sort field; a nil last_login sorts last in either
// direction, like NULLS LAST.
func compareBy(s models.Sort, a, b *models.PublicUser) int {
	dir := 1
	if s.Desc {
		dir = -1
	}

	switch s.Field {
	case models.SortByEmail:
		return dir * cmp.Compare(a.Email, b.Email)
	case models.SortByVisionTokens:
		return dir * cmp.Compare(a.VisionTokens, b.VisionTokens)
	case models.SortByLastLogin:
		switch {
		case a.LastLogin == nil && b.LastLogin == nil:
			return 0
		case a.LastLogin == nil:
			return 1
		case b.LastLogin == nil:
			return -1
		}
		return dir * a.LastLogin.Compare(*b.LastLogin)
	default:
		return dir * a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r *MemoryRepository) SetFlag(ctx context.Context, id string, flag Flag, value bool) (*models.PublicUser, error) {
	if !flag.valid() {
		return nil, fmt.Errorf("%w: unknown flag %q", common.ErrValidation, flag)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	switch flag {
	case FlagActive:
		u.IsActive = value
	case FlagBanned:
		u.IsBanned = value
	case FlagAdmin:
		u.IsAdmin = value
	}
	u.UpdatedAt = r.now()
	return clone(u).Public(), nil
}

func (r *MemoryRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.LastLogin = &at
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) AddTokens(ctx context.Context, id string, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.get(id)
	if err != nil {
		return 0, err
	}
	if delta > 0 && u.VisionTokens > math.MaxInt64-delta {
		return 0, fmt.Errorf("%w: vision_tokens would overflow", common.ErrValidation)
	}
	if u.VisionTokens+delta < 0 {
		return 0, fmt.Errorf("db error: vision_tokens would become negative")
	}
	u.VisionTokens += delta
	u.UpdatedAt = r.now()
	return u.VisionTokens, nil
}

func (r *MemoryRepository) DebitTokens(ctx context.Context, id string, amount int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.get(id)
	if err != nil {
		return 0, err
	}
	if u.VisionTokens < amount {
		return 0, common.ErrInsufficientBalance
	}
	u.VisionTokens -= amount
	u.UpdatedAt = r.now()
	return u.VisionTokens, nil
}

func (r *MemoryRepository) SetTokens(ctx context.Context, id string, value int64) (*models.PublicUser, error) {
	if value < 0 {
		return nil, fmt.Errorf("db error: vision_tokens would become negative")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	u.VisionTokens = value
	u.UpdatedAt = r.now()
	return clone(u).Public(), nil
}

func (r *MemoryRepository) GetTokens(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.get(id)
	if err != nil {
		return 0, err
	}
	return u.VisionTokens, nil
}

func (r *MemoryRepository) SetPasswordHash(ctx context.Context, id string, hash string) (*models.PublicUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.get(id)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	u.ResetPasswordToken = nil
	u.ResetPasswordExpires = nil
	u.UpdatedAt = r.now()
	return clone(u).Public(), nil
}

func (r *MemoryRepository) ReplacePasswordHash(ctx context.Context, id string, oldHash, newHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.PasswordHash != oldHash {
		return false, nil
	}
	u.PasswordHash = newHash
	u.UpdatedAt = r.now()
	return true, nil
}

func (r *MemoryRepository) SetResetToken(ctx context.Context, id string, digest string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.get(id)
	if err != nil {
		return err
	}
	u.ResetPasswordToken = &digest
	u.ResetPasswordExpires = &expires
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) ConsumeResetToken(ctx context.Context, digest string, newHash string, now time.Time) (*models.PublicUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.ResetPasswordToken == nil || *u.ResetPasswordToken != digest {
			continue
		}
		if u.ResetPasswordExpires == nil || !u.ResetPasswordExpires.After(now) {
			return nil, common.ErrTokenInvalid
		}
		u.PasswordHash = newHash
		u.ResetPasswordToken = nil
		u.ResetPasswordExpires = nil
		u.UpdatedAt = r.now()
		return clone(u).Public(), nil
	}
	return nil, common.ErrTokenInvalid
}
