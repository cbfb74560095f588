// Package chatid derives deterministic one-to-one conversation
// identifiers from participant ids. The same pair always maps to the
// same id regardless of argument order.
package chatid

import (
	"fmt"
	"strings"

	"github.com/voyora/messaging-service/internal/apperr"
)

// Separator joins the two participant ids. Participant ids must not
// contain it.
const Separator = "_"

// Build returns the chat id for the given pair: both ids joined in
// ascending lexicographic order.
func Build(idA, idB string) (string, error) {
	if idA == "" || idB == "" {
		return "", fmt.Errorf("%w: participant id is empty", apperr.ErrInvalidArgument)
	}
	if strings.Contains(idA, Separator) || strings.Contains(idB, Separator) {
		return "", fmt.Errorf("%w: participant id contains %q", apperr.ErrInvalidArgument, Separator)
	}
	if idA == idB {
		return "", fmt.Errorf("%w: participants must be distinct", apperr.ErrInvalidArgument)
	}
	if idA > idB {
		idA, idB = idB, idA
	}
	return idA + Separator + idB, nil
}

// Members splits a chat id back into its two participant ids.
func Members(chatID string) ([]string, error) {
	parts := strings.Split(chatID, Separator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q", apperr.ErrMalformedID, chatID)
	}
	return parts, nil
}

// OtherParticipant returns the member of chatID that is not selfID.
func OtherParticipant(chatID, selfID string) (string, error) {
	parts, err := Members(chatID)
	if err != nil {
		return "", err
	}
	switch selfID {
	case parts[0]:
		return parts[1], nil
	case parts[1]:
		return parts[0], nil
	}
	return "", fmt.Errorf("%w: %q is not a member of %q", apperr.ErrMalformedID, selfID, chatID)
}
