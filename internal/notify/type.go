package notify

import (
	"database/sql/driver"
	"fmt"
)

// Type is the kind of mutation a notification records.
type Type string

const (
	TypeCreate  Type = "create"
	TypeEdit    Type = "edit"
	TypeDelete  Type = "delete"
	TypeConvert Type = "convert"
	TypeAdd     Type = "add"
	TypeRemove  Type = "remove"
	TypeAssign  Type = "assign"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeCreate, TypeEdit, TypeDelete, TypeConvert, TypeAdd, TypeRemove, TypeAssign:
		return true
	}
	return false
}

func (t Type) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("notify: invalid type %q", string(t))
	}
	return string(t), nil
}

func (t *Type) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("notify: unsupported type scan type %T", value)
	}
	if !Type(s).Valid() {
		return fmt.Errorf("notify: invalid type %q", s)
	}
	*t = Type(s)
	return nil
}
