package util

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/genesishealth/genesis-api/model"
)

// Tokens are long-lived bearer credentials; there is no refresh-token
// concept. Sign-out works through the revocation denylist instead.
const defaultTokenLifetimeDays = 50

func tokenLifetime() time.Duration {
	days := defaultTokenLifetimeDays
	if v := getEnv("JWT_LIFETIME_DAYS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

// IssueToken encodes the user's id and a denormalized identity snapshot
// into a signed JWT. Authorization always resolves the live user record;
// the snapshot exists for clients only.
func IssueToken(user model.User) (string, error) {
	return issueToken(user, tokenLifetime())
}

func issueToken(user model.User, lifetime time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"public_id":  user.ID,
		"name":       user.Name,
		"username":   user.Username,
		"email":      user.Email,
		"profile_id": user.ProfileID,
		"exp":        time.Now().Add(lifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(GetJWTSecretByte())
}

// ParseToken verifies the signature and expiry of a bearer token and
// returns the encoded user id and expiry. Failures carry the token error
// kinds from errors.go.
func ParseToken(tokenString string) (uint, time.Time, error) {
	if tokenString == "" {
		return 0, time.Time{}, ErrTokenMissing
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return GetJWTSecretByte(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, time.Time{}, ErrTokenExpired
		}
		return 0, time.Time{}, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, time.Time{}, ErrTokenInvalid
	}

	publicID, ok := claims["public_id"].(float64)
	if !ok || publicID <= 0 {
		return 0, time.Time{}, ErrTokenInvalid
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0, time.Time{}, ErrTokenInvalid
	}

	return uint(publicID), time.Unix(int64(exp), 0), nil
}
