package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity fields carried in a bearer token. They are decoded
// without signature verification and are only used for display and refresh
// scheduling, never for authorization.
type Claims struct {
	Subject   string    `json:"subject,omitempty"`
	Role      string    `json:"role,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// HasExpiry reports whether the token carried an exp claim.
func (c Claims) HasExpiry() bool {
	return !c.ExpiresAt.IsZero()
}

// lmsClaims mirrors the payload issued by the platform. The backend puts the
// user id in "id"; newer tokens may also set "sub".
type lmsClaims struct {
	UserID interface{} `json:"id,omitempty"`
	Role   string      `json:"role,omitempty"`
	Email  string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var claimsParser = jwt.NewParser()

// DecodeClaims extracts the claims from token without verifying its
// signature.
func DecodeClaims(token string) (Claims, error) {
	var raw lmsClaims
	if _, _, err := claimsParser.ParseUnverified(token, &raw); err != nil {
		return Claims{}, fmt.Errorf("failed to decode token claims: %w", err)
	}

	claims := Claims{
		Subject: raw.Subject,
		Role:    raw.Role,
		Email:   raw.Email,
	}
	if claims.Subject == "" && raw.UserID != nil {
		claims.Subject = formatUserID(raw.UserID)
	}
	if raw.ExpiresAt != nil {
		claims.ExpiresAt = raw.ExpiresAt.Time
	}
	return claims, nil
}

func formatUserID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprint(id)
	}
}

// SecondsUntilExpiry returns exp minus now in whole seconds. A token that
// cannot be decoded or has no exp claim yields 0, which callers treat as
// expired.
func SecondsUntilExpiry(token string, now time.Time) int64 {
	claims, err := DecodeClaims(token)
	if err != nil || !claims.HasExpiry() {
		return 0
	}
	return claims.ExpiresAt.Unix() - now.Unix()
}
