package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/testutil"
)

func setupAuthService(t *testing.T) *AuthService {
	t.Helper()
	return NewAuthService(repository.NewUserRepository(testutil.NewDB(t)))
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := setupAuthService(t)

	user, err := svc.Register(RegisterInput{
		Email:     "  Alice@Example.com ",
		Password:  "Password1",
		FirstName: "Alice",
		LastName:  "Smith",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "Password1", user.PasswordHash)

	loggedIn, err := svc.Login(LoginInput{Email: "ALICE@example.com", Password: "Password1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotNil(t, loggedIn.LastLogin)

	stored, err := svc.GetUser(user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	_, err = svc.Login(LoginInput{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(LoginInput{Email: "nobody@example.com", Password: "Password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc := setupAuthService(t)

	_, err := svc.Register(RegisterInput{Email: "not-an-email", Password: "Password1", FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(RegisterInput{Email: "a@example.com", Password: "weak", FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(RegisterInput{Email: "a@example.com", Password: "Password1", FirstName: " ", LastName: "B"})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.Register(RegisterInput{Email: "a@example.com", Password: "Password1", FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	_, err = svc.Register(RegisterInput{Email: "A@example.com", Password: "Password1", FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestAuthService_UpdateProfile(t *testing.T) {
	svc := setupAuthService(t)

	user, err := svc.Register(RegisterInput{Email: "a@example.com", Password: "Password1", FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	first := "Ada"
	updated, err := svc.UpdateProfile(user.ID, UpdateProfileInput{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Ada B", updated.FullName())

	empty := ""
	_, err = svc.UpdateProfile(user.ID, UpdateProfileInput{LastName: &empty})
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = svc.UpdateProfile(9999, UpdateProfileInput{FirstName: &first})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
