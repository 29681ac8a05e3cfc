package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recomind-service/service/models"
	"recomind-service/service/utils"
	"recomind-service/testutil"
)

func newTestTenantService(t *testing.T) (*Service, *utils.CryptoUtils) {
	t.Helper()
	db := testutil.NewSQLiteDB(t, &models.Tenant{})
	crypto := utils.NewCryptoUtils("test-key")
	return NewService(db, crypto), crypto
}

func validSettings() models.SourceDBSettings {
	return models.SourceDBSettings{
		Host:     "db.example.com",
		Database: "sales",
		User:     "reader",
		Password: "p4ss",
	}
}

func TestRegisterEncryptsPassword(t *testing.T) {
	svc, crypto := newTestTenantService(t)

	require.NoError(t, svc.Register(context.Background(), "acme", "Acme Inc", validSettings(), "0 3 * * *"))

	tn, err := svc.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.NotEqual(t, "p4ss", tn.DBPasswordCipher)

	plain, err := crypto.AESDecrypt(tn.DBPasswordCipher)
	require.NoError(t, err)
	assert.Equal(t, "p4ss", plain)

	// 默认值回填
	assert.Equal(t, 5432, tn.DBPort)
	assert.Equal(t, "disable", tn.DBSSLMode)
	assert.Equal(t, "0 3 * * *", tn.IngestionCronExpr)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestTenantService(t)

	assert.Error(t, svc.Register(context.Background(), "", "x", validSettings(), ""))

	incomplete := validSettings()
	incomplete.Host = ""
	assert.Error(t, svc.Register(context.Background(), "acme", "x", incomplete, ""))
}

func TestRegisterUpdatesExisting(t *testing.T) {
	svc, _ := newTestTenantService(t)

	require.NoError(t, svc.Register(context.Background(), "acme", "Old", validSettings(), ""))
	require.NoError(t, svc.Register(context.Background(), "acme", "New", validSettings(), ""))

	tenants, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, "New", tenants[0].Name)
}

func TestGetMissingTenant(t *testing.T) {
	svc, _ := newTestTenantService(t)

	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}
