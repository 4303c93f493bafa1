package domain

// Credential is what a login request carries. It only lives for one request
// or inside an encoded token.
type Credential struct {
	Token      string
	GrowID     string
	Password   string
	ServerPort string
}

// IsRegistration reports whether the client asked for a fresh account, which
// it signals by sending neither a GrowID nor a password.
func (c Credential) IsRegistration() bool {
	return c.GrowID == "" && c.Password == ""
}
