// Package event defines the closed catalog of account-lifecycle event kinds
// published to the broker, together with their payload contracts.
//
// Adding a new kind means adding a constant here, a mail template, and an
// executor mapping in the worker; the sink and dispatcher are kind-agnostic.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Kind identifies one type of notification event. Its string value doubles
// as the broker topic name.
type Kind string

const (
	KindEmailVerification         Kind = "email_verification"
	KindAccountLocked             Kind = "account_locked"
	KindAccountUnlocked           Kind = "account_unlocked"
	KindRoleUpgrade               Kind = "role_upgrade"
	KindProfessionalStatusUpgrade Kind = "professional_status_upgrade"
)

// Kinds returns the closed set of supported event kinds.
func Kinds() []Kind {
	return []Kind{
		KindEmailVerification,
		KindAccountLocked,
		KindAccountUnlocked,
		KindRoleUpgrade,
		KindProfessionalStatusUpgrade,
	}
}

// Valid reports whether k is a member of the catalog.
func (k Kind) Valid() bool {
	switch k {
	case KindEmailVerification, KindAccountLocked, KindAccountUnlocked,
		KindRoleUpgrade, KindProfessionalStatusUpgrade:
		return true
	default:
		return false
	}
}

// Topic returns the broker topic for this kind. One topic per kind; the
// topic name is the kind's string identifier.
func (k Kind) Topic() string {
	return string(k)
}

// Description returns a human-readable description of the kind.
func (k Kind) Description() string {
	switch k {
	case KindEmailVerification:
		return "Email verification notification"
	case KindAccountLocked:
		return "Account locking notification"
	case KindAccountUnlocked:
		return "Account unlocking notification"
	case KindRoleUpgrade:
		return "Role upgrade notification"
	case KindProfessionalStatusUpgrade:
		return "Professional status upgrade notification"
	default:
		return "Unknown notification"
	}
}

// Payload carries the kind-specific event fields. Values are primitives
// (strings, bools) keyed by snake_case field names.
type Payload map[string]any

// String returns the string value stored under key, or def when the key is
// absent or not a string.
func (p Payload) String(key, def string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value stored under key, or def when the key is
// absent or not a bool.
func (p Payload) Bool(key string, def bool) bool {
	if v, ok := p[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Event is the unit published to the broker. Timestamp is assigned by the
// sink at publish time, never by the caller.
type Event struct {
	Kind      Kind      `json:"kind"`
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// boolValue validates that a payload value is a bool. ozzo's Required rule
// rejects false as a zero value, so presence and type are checked instead.
func boolValue(v any) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("must be a boolean")
	}
	return nil
}

// ValidatePayload checks that the payload carries the fields required by
// this kind. Extra keys (for example an injected timestamp) are allowed.
func (k Kind) ValidatePayload(p Payload) error {
	if !k.Valid() {
		return fmt.Errorf("unknown event kind %q", string(k))
	}
	if p == nil {
		return fmt.Errorf("payload is required for kind %q", string(k))
	}

	base := []*validation.KeyRules{
		validation.Key("id", validation.Required),
		validation.Key("email", validation.Required, is.EmailFormat),
		validation.Key("first_name", validation.Required),
	}

	switch k {
	case KindEmailVerification:
		base = append(base, validation.Key("verification_token", validation.Required))
	case KindRoleUpgrade:
		base = append(base, validation.Key("new_role", validation.Required))
	case KindProfessionalStatusUpgrade:
		base = append(base, validation.Key("is_professional", validation.By(boolValue)))
	}

	if err := validation.Validate(map[string]any(p), validation.Map(base...).AllowExtraKeys()); err != nil {
		return fmt.Errorf("invalid %s payload: %w", string(k), err)
	}
	return nil
}

// DecodePayload unmarshals a broker message value into a Payload.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode event payload: %w", err)
	}
	return p, nil
}
