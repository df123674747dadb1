// Package statekey derives composite storage keys that namespace ledger
// records by entity type. A key is laid out as
//
//	0x00 <entityType> 0x00 <id> 0x00
//
// which keeps distinct (entityType, id) pairs injective as long as neither
// segment contains the 0x00 delimiter. Segments containing the delimiter are
// rejected rather than escaped.
package statekey

import (
	"bytes"

	"balance-ledger/internal/errors"
)

// EntityAccount tags keys holding account records.
const EntityAccount = "Account"

const delimiter = "\x00"

// For builds the storage key for one record of the given entity type.
func For(entityType, id string) ([]byte, error) {
	if err := validateSegment(entityType); err != nil {
		return nil, err
	}
	if err := validateSegment(id); err != nil {
		return nil, err
	}

	var key bytes.Buffer
	key.WriteString(delimiter)
	key.WriteString(entityType)
	key.WriteString(delimiter)
	key.WriteString(id)
	key.WriteString(delimiter)
	return key.Bytes(), nil
}

// Prefix returns the inclusive lower bound of the key range covering every
// record of the given entity type.
func Prefix(entityType string) []byte {
	return []byte(delimiter + entityType + delimiter)
}

// PrefixEnd returns the exclusive upper bound matching Prefix: the prefix
// with its final delimiter bumped, so [Prefix, PrefixEnd) selects exactly
// the records of one entity type.
func PrefixEnd(entityType string) []byte {
	end := Prefix(entityType)
	end[len(end)-1]++
	return end
}

func validateSegment(segment string) error {
	if segment == "" {
		return errors.ErrInvalidAccountID
	}
	if bytes.Contains([]byte(segment), []byte(delimiter)) {
		return errors.NewAppError(errors.InvalidAccountID, "key segment contains reserved delimiter")
	}
	return nil
}
