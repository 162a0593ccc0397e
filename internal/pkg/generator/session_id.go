package generator

import (
	"github.com/google/uuid"
)

type SessionIDGenerator struct{}

func NewSessionIDGenerator() *SessionIDGenerator {
	return &SessionIDGenerator{}
}

func (g *SessionIDGenerator) NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like one this generator issued.
// Cookies carrying anything else are replaced rather than trusted as store keys.
func ValidSessionID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
