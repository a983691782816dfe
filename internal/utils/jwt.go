package utils // package utils provides helpers for signing tokens and hashing passwords

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "typ" claim.  Access tokens and guest session
// cookies share the signing secret, so each parser insists on its own type.
const (
	TokenTypeAccess = "access"
	TokenTypeGuest  = "guest"
)

// AccessToken is a signed account access token and its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for an account.  The subject
// is the user id as a decimal string.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(userID, 10),
		"role": role,
		"typ":  TokenTypeAccess,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

type guestClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// NewGuestSessionToken signs the browser session cookie value.  sessionID
// identifies the owner of pending payments.
func NewGuestSessionToken(secret, sessionID string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := guestClaims{
		Type: TokenTypeGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ErrInvalidToken is returned for tokens that fail signature, expiry or type checks.
var ErrInvalidToken = errors.New("invalid token")

// ParseAccessToken validates an access token and returns its subject and role.
func ParseAccessToken(secret, raw string) (string, string, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, keyFunc(secret), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return "", "", ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != TokenTypeAccess {
		return "", "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return "", "", ErrInvalidToken
	}
	return sub, role, nil
}

// ParseGuestSessionToken validates a session cookie and returns the session id.
func ParseGuestSessionToken(secret, raw string) (string, error) {
	var claims guestClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, keyFunc(secret), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid || claims.Type != TokenTypeGuest || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}
}
