package service

import (
	"context"
	"testing"

	"github.com/zolijavos/KGC-3-sub017/internal/apperror"
	"github.com/zolijavos/KGC-3-sub017/internal/dto"
	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users map[uuid.UUID]model.User
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := u
	return &out, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, tenantID uuid.UUID, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.TenantID == tenantID && u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

const testSecret = "unit-test-secret"

func newAuthFixture(t *testing.T) (AuthService, *fakeUserRepo, model.User) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pw"), bcrypt.MinCost)
	require.NoError(t, err)

	user := model.User{
		ID:           uuid.New(),
		TenantID:     uuid.New(),
		Username:     "kovacs.anna",
		Name:         "Kovács Anna",
		PasswordHash: string(hash),
		Role:         model.RoleCashier,
		Active:       true,
	}
	repo := &fakeUserRepo{users: map[uuid.UUID]model.User{user.ID: user}}
	return NewAuthService(repo, testSecret, 1, 168), repo, user
}

func TestLogin(t *testing.T) {
	svc, _, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		TenantID: user.TenantID.String(),
		Username: "kovacs.anna",
		Password: "s3cret-pw",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, model.RoleCashier, resp.User.Role)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Positive(t, resp.ExpiresIn)

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "access", claims["typ"])
	assert.Equal(t, user.TenantID.String(), claims["tenant_id"])
	assert.Equal(t, user.ID.String(), claims["sub"])
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _, user := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, dto.LoginRequest{
		TenantID: user.TenantID.String(), Username: "kovacs.anna", Password: "wrong",
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.Login(ctx, dto.LoginRequest{
		TenantID: user.TenantID.String(), Username: "nobody", Password: "s3cret-pw",
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	// Right credentials, wrong tenant.
	_, err = svc.Login(ctx, dto.LoginRequest{
		TenantID: uuid.NewString(), Username: "kovacs.anna", Password: "s3cret-pw",
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestLoginInactiveUser(t *testing.T) {
	svc, repo, user := newAuthFixture(t)
	user.Active = false
	repo.users[user.ID] = user

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		TenantID: user.TenantID.String(), Username: "kovacs.anna", Password: "s3cret-pw",
	})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestRefresh(t *testing.T) {
	svc, _, user := newAuthFixture(t)
	ctx := context.Background()

	login, err := svc.Login(ctx, dto.LoginRequest{
		TenantID: user.TenantID.String(), Username: "kovacs.anna", Password: "s3cret-pw",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	// An access token is not accepted where a refresh token is expected.
	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: login.AccessToken})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.Refresh(ctx, dto.RefreshRequest{RefreshToken: "not-a-token"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
