package token

import "strings"

// Keys the game client uses for credentials in its dashboard body.
const (
	BodyKeyName     = "tankIDName"
	BodyKeyPassword = "tankIDPass"
)

// ParseBody reads the client's dashboard body.
//
// Grammar: records are separated by "\n" ("\r\n" and the two-byte escape
// `\n` are accepted too). A record is "key|value", split on the first "|".
// Records without "|" or with an empty key are skipped, so every input yields
// a result, possibly empty. A repeated key keeps its last value.
func ParseBody(body string) Fields {
	var f Fields

	body = strings.ReplaceAll(body, `\n`, "\n")
	for _, record := range strings.Split(body, "\n") {
		record = strings.TrimSuffix(record, "\r")
		key, value, ok := strings.Cut(record, "|")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		f.Set(key, value)
	}
	return f
}

// BodyCredentials returns the GrowID and password a dashboard body carries.
// Named keys win; otherwise the first two records are taken as name and
// password, which is the order the client writes them in.
func BodyCredentials(f Fields) (growID, password string) {
	if f.Has(BodyKeyName) || f.Has(BodyKeyPassword) {
		return strings.TrimSpace(f.Get(BodyKeyName)), f.Get(BodyKeyPassword)
	}
	if f.Len() < 2 {
		return "", ""
	}
	return strings.TrimSpace(f.Get(f.keys[0])), f.Get(f.keys[1])
}
