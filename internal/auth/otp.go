package auth

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// OTPAuthority hands out short-lived one-time codes that upgrade a handshake
// connection to a durable session. At most one code is outstanding per
// identity; issuing a new one silently replaces the old.
type OTPAuthority struct {
	mu    sync.Mutex
	codes map[uuid.UUID]string
}

// NewOTPAuthority creates an empty authority.
func NewOTPAuthority() *OTPAuthority {
	return &OTPAuthority{codes: make(map[uuid.UUID]string)}
}

// Issue generates a 6-digit code for the player, replacing any prior one.
// The code is delivered out-of-band (whispered in game), never to the web
// connection that asked for it.
func (o *OTPAuthority) Issue(playerID uuid.UUID) string {
	code := fmt.Sprintf("%06d", 100000+rand.Intn(900000))

	o.mu.Lock()
	o.codes[playerID] = code
	o.mu.Unlock()

	return code
}

// Verify checks the submitted code against the outstanding one. A match
// consumes the code; a mismatch leaves it in place so the user can retry.
func (o *OTPAuthority) Verify(playerID uuid.UUID, code string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	stored, ok := o.codes[playerID]
	if !ok || stored != code {
		return false
	}
	delete(o.codes, playerID)
	return true
}
