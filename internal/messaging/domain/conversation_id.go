package domain

import (
	"fmt"
	"strings"

	errprocess "rental_messaging_service/pkg/err"
)

// idSeparator joins the sorted participant ids and the optional property id.
// The REST facade and the realtime gateway must agree on the derived id
// bit-for-bit, so both always go through ResolveConversationID.
const idSeparator = "_"

// ResolveConversationID derives the canonical conversation id for a pair of
// users, optionally scoped to a property. Order independent:
// ResolveConversationID(a, b, p) == ResolveConversationID(b, a, p).
func ResolveConversationID(userA, userB, propertyID string) (string, error) {
	if userA == "" || userB == "" {
		return "", fmt.Errorf("%w: participant id is empty", errprocess.ErrInvalidArgument)
	}
	if userA == userB {
		return "", fmt.Errorf("%w: cannot start a conversation with yourself", errprocess.ErrInvalidArgument)
	}

	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}

	parts := []string{lo, hi}
	if propertyID != "" {
		parts = append(parts, propertyID)
	}
	return strings.Join(parts, idSeparator), nil
}
