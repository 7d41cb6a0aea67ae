package ledger

import "crypto/subtle"

const (
	DefaultUsername = "admin"
	DefaultPassword = "password123"
)

// AdminConfig is the singleton settings document: the one credential pair
// and the per-method seed balances. The password is stored and compared in
// plaintext.
type AdminConfig struct {
	Username   string `json:"username"`
	Password   string `json:"-"`
	SeedCash   Amount `json:"seedCash"`
	SeedBank   Amount `json:"seedBank"`
	SeedMobile Amount `json:"seedMobile"`
}

// DefaultConfig is written when no config document exists yet.
func DefaultConfig() AdminConfig {
	return AdminConfig{Username: DefaultUsername, Password: DefaultPassword}
}

// Seeds returns the seed balances of c.
func (c AdminConfig) Seeds() Seeds {
	return Seeds{Cash: c.SeedCash, Bank: c.SeedBank, Mobile: c.SeedMobile}
}

// Authenticate reports whether both submitted fields equal the stored ones
// exactly. Comparison is case-sensitive.
func Authenticate(username, password string, cfg AdminConfig) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) == 1
	return userOK && passOK
}

// SettingsUpdate is a settings save request. Nil seeds mean "not supplied".
type SettingsUpdate struct {
	Username   string  `json:"username"`
	Password   string  `json:"password"`
	SeedCash   *Amount `json:"seedCash"`
	SeedBank   *Amount `json:"seedBank"`
	SeedMobile *Amount `json:"seedMobile"`
}

// UpdateConfig applies u to current. The username is always replaced, an
// empty password keeps the current one, and seeds not supplied become zero.
func UpdateConfig(current AdminConfig, u SettingsUpdate) AdminConfig {
	next := current
	next.Username = u.Username
	if u.Password != "" {
		next.Password = u.Password
	}
	next.SeedCash = seedOrZero(u.SeedCash)
	next.SeedBank = seedOrZero(u.SeedBank)
	next.SeedMobile = seedOrZero(u.SeedMobile)
	return next
}

func seedOrZero(a *Amount) Amount {
	if a == nil || a.IsNaN() {
		return 0
	}
	return *a
}
