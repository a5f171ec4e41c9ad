package backend

import (
	"encoding/json"
	"strconv"
	"strings"
)

// UserID accepts both numeric and string ids from the platform.
type UserID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *UserID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*id = UserID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*id = UserID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = UserID(n.String())
	return nil
}

// User is the account summary returned alongside tokens.
type User struct {
	ID    UserID `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is either a final token or a second-factor challenge.
type LoginResult struct {
	Token             string `json:"token,omitempty"`
	User              *User  `json:"user,omitempty"`
	RequiresTwoFactor bool   `json:"requiresTwoFactor,omitempty"`
	TempToken         string `json:"tempToken,omitempty"`
}

// VerifyRequest is the body of POST /api/2fa/verify.
type VerifyRequest struct {
	Email         string `json:"email"`
	TempToken     string `json:"tempToken"`
	TwoFactorCode string `json:"twoFactorCode"`
}

// AuthResult carries a final session token.
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// MeResult is the reply of GET /api/auth/me.
type MeResult struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// refreshResult is the reply of POST /api/auth/refresh.
type refreshResult struct {
	Token string `json:"token"`
}

// SetupResult is the reply of POST /api/user2fa/setup.
type SetupResult struct {
	Secret     string `json:"secret"`
	QRCode     string `json:"qrCode"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// EnableRequest is the body of POST /api/user2fa/enable.
type EnableRequest struct {
	Secret string `json:"secret"`
	Token  string `json:"token"`
}

// EnableResult is the reply of POST /api/user2fa/enable.
type EnableResult struct {
	BackupCodes []string `json:"backupCodes"`
}

// DisableRequest is the body of POST /api/user2fa/disable.
type DisableRequest struct {
	Token string `json:"token"`
}
