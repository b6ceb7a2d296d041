package handler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gestvendas/internal/database"
	"gestvendas/internal/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestUsers(t *testing.T) *UserHandler {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewUserHandler(newTestDB(t), nil, logger, time.Hour)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	handler := newTestUsers(t)

	created, err := handler.Register(context.Background(), RegisterRequest{
		Username: "joao",
		Email:    "Joao@Example.com",
		Password: "segredo123",
	})
	require.NoError(t, err)
	assert.Equal(t, "joao@example.com", created.Email, "email is normalized")
	assert.NotEqual(t, "segredo123", created.PasswordHash)
	require.NotNil(t, created.ConfirmationToken)
	assert.NotEmpty(t, *created.ConfirmationToken)

	result, err := handler.Authenticate(context.Background(), "joao", "segredo123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	claims, err := utils.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserId)
	assert.Equal(t, "joao", claims.Username)
}

func TestRegisterDuplicate(t *testing.T) {
	handler := newTestUsers(t)

	_, err := handler.Register(context.Background(), RegisterRequest{
		Username: "joao", Email: "joao@example.com", Password: "segredo123",
	})
	require.NoError(t, err)

	_, err = handler.Register(context.Background(), RegisterRequest{
		Username: "joao", Email: "other@example.com", Password: "segredo123",
	})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = handler.Register(context.Background(), RegisterRequest{
		Username: "other", Email: "joao@example.com", Password: "segredo123",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthenticateFailures(t *testing.T) {
	handler := newTestUsers(t)

	created, err := handler.Register(context.Background(), RegisterRequest{
		Username: "joao", Email: "joao@example.com", Password: "segredo123",
	})
	require.NoError(t, err)

	_, err = handler.Authenticate(context.Background(), "joao", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = handler.Authenticate(context.Background(), "nobody", "segredo123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, handler.DeactivateUser(context.Background(), created.ID))
	_, err = handler.Authenticate(context.Background(), "joao", "segredo123")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestChangePassword(t *testing.T) {
	handler := newTestUsers(t)

	created, err := handler.Register(context.Background(), RegisterRequest{
		Username: "joao", Email: "joao@example.com", Password: "segredo123",
	})
	require.NoError(t, err)

	err = handler.ChangePassword(context.Background(), created.ID, "wrong", "novosegredo")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, handler.ChangePassword(context.Background(), created.ID, "segredo123", "novosegredo"))

	_, err = handler.Authenticate(context.Background(), "joao", "segredo123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = handler.Authenticate(context.Background(), "joao", "novosegredo")
	assert.NoError(t, err)
}

func TestSettingsUpsertAndGet(t *testing.T) {
	handler := newTestUsers(t)

	_, err := handler.GetSetting(context.Background(), "company_name")
	assert.ErrorIs(t, err, ErrSettingNotFound)

	created, err := handler.UpsertSetting(context.Background(), "company_name", "GestVendas Lda", "")
	require.NoError(t, err)
	assert.Equal(t, "string", created.DataType)

	updated, err := handler.UpsertSetting(context.Background(), "company_name", "Nova Empresa", "")
	require.NoError(t, err)
	assert.Equal(t, "Nova Empresa", updated.Value)
	assert.Equal(t, created.ID, updated.ID)

	settings, err := handler.ListSettings(context.Background())
	require.NoError(t, err)
	require.Len(t, settings, 1)
}
