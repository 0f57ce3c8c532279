package signaturerequest

import (
	"time"

	"github.com/google/uuid"
)

type SignerStatus string

const (
	SignerUnsent   SignerStatus = "unsent"
	SignerSent     SignerStatus = "sent"
	SignerViewed   SignerStatus = "viewed"
	SignerSigned   SignerStatus = "signed"
	SignerDeclined SignerStatus = "declined"
)

// signerRank orders signer statuses so transitions can only move
// forward. Signed and declined are both terminal.
func signerRank(s SignerStatus) int {
	switch s {
	case SignerUnsent:
		return 0
	case SignerSent:
		return 1
	case SignerViewed:
		return 2
	case SignerSigned, SignerDeclined:
		return 3
	}
	return -1
}

func (s SignerStatus) IsTerminal() bool {
	return s == SignerSigned || s == SignerDeclined
}

// CanAdvanceTo reports whether moving from s to next is a forward
// transition. Terminal states accept no further movement.
func (s SignerStatus) CanAdvanceTo(next SignerStatus) bool {
	if s == next {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	return signerRank(next) > signerRank(s)
}

type AuthRequirement string

const (
	AuthNone  AuthRequirement = "none"
	AuthEmail AuthRequirement = "email"
	AuthSMS   AuthRequirement = "sms"
)

// Signer belongs to exactly one signature request. OrderIndex drives
// sequential routing; lower indexes sign first.
type Signer struct {
	ID         uuid.UUID
	OrderIndex int
	Name       string
	Email      string
	Phone      string
	Auth       AuthRequirement
	Status     SignerStatus
	Fields     []Field
	SentAt     *time.Time
	ViewedAt   *time.Time
	SignedAt   *time.Time
	DeclinedAt *time.Time
}

// NextSignerInOrder returns the lowest-order signer not yet in a
// terminal state, or nil when every signer is terminal.
func NextSignerInOrder(signers []Signer) *Signer {
	var next *Signer
	for i := range signers {
		s := &signers[i]
		if s.Status.IsTerminal() {
			continue
		}
		if next == nil || s.OrderIndex < next.OrderIndex {
			next = s
		}
	}
	return next
}
