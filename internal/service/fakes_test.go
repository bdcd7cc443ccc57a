package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/secureweb/auth-service/internal/errs"
	"github.com/secureweb/auth-service/internal/model"
)

// In-memory store fakes. Not safe for concurrent use; tests are sequential.

type fakeUsers struct {
	byID  map[uuid.UUID]*model.User
	roles map[uuid.UUID][]string

	// conflictsLeft forces UpdateLockout to report a version conflict the
	// given number of times before behaving normally.
	conflictsLeft int
	lockoutWrites int

	// blockUntilCancel makes reads hang until the context is done, imitating
	// an unresponsive backend.
	blockUntilCancel bool
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uuid.UUID]*model.User{}, roles: map[uuid.UUID][]string{}}
	for _, u := range users {
		cp := *u
		f.byID[u.ID] = &cp
	}
	return f
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if f.blockUntilCancel {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateLockout(_ context.Context, id uuid.UUID, failedCount int, lockedUntil *time.Time, expectedFailedCount int) error {
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return errs.ErrVersionConflict
	}
	u, ok := f.byID[id]
	if !ok || u.FailedLoginCount != expectedFailedCount {
		return errs.ErrVersionConflict
	}
	u.FailedLoginCount = failedCount
	u.LockedUntil = lockedUntil
	f.lockoutWrites++
	return nil
}

func (f *fakeUsers) SetMfaEnabled(_ context.Context, id uuid.UUID, enabled bool) error {
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.MfaEnabled = enabled
	return nil
}

func (f *fakeUsers) ListRoleNames(_ context.Context, id uuid.UUID) ([]string, error) {
	return f.roles[id], nil
}

type fakeTokens struct {
	byJTI map[uuid.UUID]*model.RefreshTokenRecord

	findErr          error
	blockUntilCancel bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byJTI: map[uuid.UUID]*model.RefreshTokenRecord{}}
}

func (f *fakeTokens) Create(_ context.Context, jti, userID uuid.UUID, expiresAt time.Time) error {
	if _, ok := f.byJTI[jti]; ok {
		return errs.ErrAlreadyExists
	}
	f.byJTI[jti] = &model.RefreshTokenRecord{
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeTokens) Find(ctx context.Context, jti uuid.UUID) (*model.RefreshTokenRecord, error) {
	if f.blockUntilCancel {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	rec, ok := f.byJTI[jti]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeTokens) Revoke(_ context.Context, jti uuid.UUID) error {
	if rec, ok := f.byJTI[jti]; ok {
		rec.Revoked = true
	}
	return nil
}

func (f *fakeTokens) DeleteStale(_ context.Context, cutoff time.Time, batchSize int) (int64, error) {
	var n int64
	for jti, rec := range f.byJTI {
		if n >= int64(batchSize) {
			break
		}
		if time.Now().After(rec.ExpiresAt) || (rec.Revoked && rec.CreatedAt.Before(cutoff)) {
			delete(f.byJTI, jti)
			n++
		}
	}
	return n, nil
}

type fakeSecrets struct {
	byUser  map[uuid.UUID][]*model.TotpSecretRecord
	creates int
}

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{byUser: map[uuid.UUID][]*model.TotpSecretRecord{}}
}

func (f *fakeSecrets) FindActive(_ context.Context, userID uuid.UUID) (*model.TotpSecretRecord, error) {
	recs := f.byUser[userID]
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].RevokedAt == nil {
			cp := *recs[i]
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeSecrets) Create(_ context.Context, userID uuid.UUID, secret string) (*model.TotpSecretRecord, error) {
	f.creates++
	rec := &model.TotpSecretRecord{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    userID,
		Secret:    secret,
		CreatedAt: time.Now(),
	}
	f.byUser[userID] = append(f.byUser[userID], rec)
	cp := *rec
	return &cp, nil
}
