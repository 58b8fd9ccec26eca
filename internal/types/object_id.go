package types

import (
	"database/sql/driver"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectID is a 24 character hex identifier. Every document key and reference uses it,
// so ids stay portable with exports from the document store the data was migrated from.
type ObjectID string

// NewObjectID returns a fresh, time ordered identifier.
func NewObjectID() ObjectID {
	return ObjectID(primitive.NewObjectID().Hex())
}

// IsValidObjectID reports whether s is a well formed 24 hex identifier.
func IsValidObjectID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// ParseObjectID validates s, returning a 400 error naming the field when it is malformed.
func ParseObjectID(field, s string) (ObjectID, error) {
	if !IsValidObjectID(s) {
		return "", ValidationError(fmt.Sprintf("%s is invalid", field))
	}
	return ObjectID(s), nil
}

func (id ObjectID) String() string {
	return string(id)
}

// IsZero reports an unset reference.
func (id ObjectID) IsZero() bool {
	return id == ""
}

// Ptr returns nil for an unset id so optional references persist as NULL.
func (id ObjectID) Ptr() *ObjectID {
	if id.IsZero() {
		return nil
	}
	return &id
}

// Value stores the id as its hex string.
func (id ObjectID) Value() (driver.Value, error) {
	return string(id), nil
}

// Scan accepts the string and byte forms drivers return.
func (id *ObjectID) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*id = ""
	case string:
		*id = ObjectID(v)
	case []byte:
		*id = ObjectID(string(v))
	default:
		return fmt.Errorf("ObjectID: unsupported scan type %T", value)
	}
	return nil
}
