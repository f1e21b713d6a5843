package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// User is the canonical profile persisted with the session token
type User struct {
	ID        string `json:"id,omitempty" yaml:"id,omitempty"`
	Email     string `json:"email" yaml:"email"`
	FirstName string `json:"firstName" yaml:"firstName"`
	LastName  string `json:"lastName" yaml:"lastName"`
}

// DisplayName returns "first last", falling back to the email
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Email
}

// Session is the durable (token, user) pair. An empty Token means no session.
type Session struct {
	Token string
	User  *User
}

// NormalizeUser maps a server or legacy user payload onto User. Historical
// payloads use first_name, firstName or user_metadata.first_name; the id
// may arrive as id or user_id, as a string or a number. fallbackEmail is
// used when the payload carries no email.
func NormalizeUser(raw map[string]any, fallbackEmail string) *User {
	meta, _ := raw["user_metadata"].(map[string]any)

	u := &User{
		ID:        firstString(raw["id"], raw["user_id"]),
		Email:     firstString(raw["email"], fallbackEmail),
		FirstName: firstString(raw["first_name"], raw["firstName"], lookup(meta, "first_name")),
		LastName:  firstString(raw["last_name"], raw["lastName"], lookup(meta, "last_name")),
	}
	return u
}

// decodeObject parses a JSON object keeping numbers exact. Anything that is
// not an object yields nil.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func lookup(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

// firstString returns the first value that renders to a non-empty string.
func firstString(values ...any) string {
	for _, v := range values {
		var s string
		switch t := v.(type) {
		case nil:
			continue
		case string:
			s = t
		case json.Number:
			s = t.String()
		case float64:
			s = fmt.Sprintf("%v", t)
		case bool:
			continue
		default:
			s = fmt.Sprintf("%v", t)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
