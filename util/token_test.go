package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/genesishealth/genesis-api/model"
)

func testUser() model.User {
	u := model.User{
		Name:      "Jane Doe",
		Username:  "janedoe",
		Email:     "jane@example.com",
		ProfileID: model.ProfilePatient,
	}
	u.ID = 42
	return u
}

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret-123")

	token, err := IssueToken(testUser())
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	userID, exp, err := ParseToken(token)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), userID)
	assert.True(t, exp.After(time.Now()))
}

func TestParseTokenMissing(t *testing.T) {
	SetJWTSecret("test-secret-123")

	_, _, err := ParseToken("")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestParseTokenTampered(t *testing.T) {
	SetJWTSecret("test-secret-123")

	token, err := IssueToken(testUser())
	assert.NoError(t, err)

	_, _, err = ParseToken(token + "x")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenWrongSecret(t *testing.T) {
	SetJWTSecret("test-secret-123")
	token, err := IssueToken(testUser())
	assert.NoError(t, err)

	SetJWTSecret("another-secret")
	defer SetJWTSecret("test-secret-123")

	_, _, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestParseTokenExpired(t *testing.T) {
	SetJWTSecret("test-secret-123")

	token, err := issueToken(testUser(), -time.Hour)
	assert.NoError(t, err)

	_, _, err = ParseToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
