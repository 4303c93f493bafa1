package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/DoVri/Topps/internal/domain"
)

// Keys of the credential token, in the order the client expects them.
const (
	KeyToken      = "_token"
	KeyGrowID     = "growId"
	KeyPassword   = "password"
	KeyServerPort = "server_port"
)

var (
	ErrDecode        = errors.New("malformed token")
	ErrMissingFields = errors.New("token is missing required fields")
)

// Encode joins the fields as key=value pairs with "&" and base64-encodes them.
func Encode(f Fields) string {
	var b strings.Builder
	for i, k := range f.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(f.values[k])
	}
	return base64.StdEncoding.EncodeToString([]byte(b.String()))
}

// Decode reverses Encode. An empty token decodes to empty Fields. Input that
// is not base64 yields an error wrapping ErrDecode. Pairs without "=" become
// keys with empty values; empty pairs are skipped.
//
// Spaces are read as "+": base64 has no spaces, and a token sent unescaped in
// a form body loses its "+" to form decoding.
func Decode(tok string) (Fields, error) {
	var f Fields

	if strings.TrimSpace(tok) == "" {
		return f, nil
	}
	tok = strings.ReplaceAll(strings.Trim(tok, "\t\r\n"), " ", "+")

	raw, err := decodeBase64(tok)
	if err != nil {
		return f, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	for _, pair := range strings.Split(string(raw), "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		f.Set(key, value)
	}
	return f, nil
}

// decodeBase64 accepts padded and unpadded standard encoding; clients differ
// in whether they keep the trailing "=".
func decodeBase64(s string) ([]byte, error) {
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

// Require returns an error wrapping ErrMissingFields naming the first absent key.
func Require(f Fields, keys ...string) error {
	for _, k := range keys {
		if !f.Has(k) {
			return fmt.Errorf("%w: %s", ErrMissingFields, k)
		}
	}
	return nil
}

// Refresh returns a copy of f whose _token field is replaced by the base64
// encoding of clientData.
func Refresh(f Fields, clientData string) Fields {
	refreshed := f.clone()
	refreshed.Set(KeyToken, base64.StdEncoding.EncodeToString([]byte(clientData)))
	return refreshed
}

// FromCredential lays a credential out in the client's field order.
func FromCredential(c domain.Credential) Fields {
	return NewFields(
		KeyToken, c.Token,
		KeyGrowID, c.GrowID,
		KeyPassword, c.Password,
		KeyServerPort, c.ServerPort,
	)
}

func ToCredential(f Fields) domain.Credential {
	return domain.Credential{
		Token:      f.Get(KeyToken),
		GrowID:     f.Get(KeyGrowID),
		Password:   f.Get(KeyPassword),
		ServerPort: f.Get(KeyServerPort),
	}
}
