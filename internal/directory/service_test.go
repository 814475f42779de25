package directory

import (
	"context"
	"fmt"
	"testing"

	"farm_market/internal/fault"
	"farm_market/internal/model"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq int

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:directory_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}))
	return db
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(testDB(t))
	email := gofakeit.Email()

	u, err := svc.Register(context.Background(), RegisterInput{
		Role:     "farmer",
		Name:     "  Ana Farmer  ",
		Email:    email,
		Password: "secret123",
		Contact:  "555-0101",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Ana Farmer", u.Name)
	assert.Equal(t, model.RoleFarmer, u.Role)
	assert.NotEqual(t, "secret123", u.PasswordHash, "password must never be stored in the clear")

	got, err := svc.Authenticate(context.Background(), email, "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// 邮箱大小写不敏感
	_, err = svc.Authenticate(context.Background(), "  "+email+" ", "secret123")
	assert.NoError(t, err)
}

func TestAuthenticateFailures(t *testing.T) {
	svc := NewService(testDB(t))
	email := gofakeit.Email()

	_, err := svc.Register(context.Background(), RegisterInput{
		Role: "client", Name: "Bo", Email: email, Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), email, "wrong-password")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(testDB(t))

	_, err := svc.Register(context.Background(), RegisterInput{
		Role: "admin", Name: "X", Email: gofakeit.Email(), Password: "secret123",
	})
	assert.Error(t, err, "only farmer/client roles exist")

	_, err = svc.Register(context.Background(), RegisterInput{
		Role: "client", Name: "X", Email: gofakeit.Email(), Password: "short",
	})
	assert.Error(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Role: "client", Name: "", Email: gofakeit.Email(), Password: "secret123",
	})
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(testDB(t))
	email := gofakeit.Email()

	_, err := svc.Register(context.Background(), RegisterInput{
		Role: "client", Name: "First", Email: email, Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Role: "client", Name: "Second", Email: email, Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestFindByID(t *testing.T) {
	svc := NewService(testDB(t))

	u, err := svc.Register(context.Background(), RegisterInput{
		Role: "farmer", Name: "Ana", Email: gofakeit.Email(), Password: "secret123",
	})
	require.NoError(t, err)

	got, err := svc.FindByID(context.Background(), model.PartyID(u.ID))
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)

	// legacy 形态先规范化再查
	got, err = svc.FindByID(context.Background(), model.PartyID("u:"+u.ID))
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, fault.ErrNotFound)
}
