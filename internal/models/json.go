package models

import (
	"database/sql/driver"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSONList is a wrapper around gorm.io/datatypes.JSONSlice to allow for custom data type mapping.
// A nil list is stored as [] and a NULL column scans to an empty list.
type JSONList[T any] []T

// Value delegates to JSONSlice
func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return datatypes.JSONSlice[T]{}.Value()
	}
	return datatypes.JSONSlice[T](l).Value()
}

// Scan delegates to JSONSlice
func (l *JSONList[T]) Scan(value interface{}) error {
	if value == nil {
		*l = JSONList[T]{}
		return nil
	}
	return (*datatypes.JSONSlice[T])(l).Scan(value)
}

// GormDataType is the generic type name used by migrations
func (JSONList[T]) GormDataType() string {
	return "json"
}

// GormDBDataType ensures the correct data type is used for each database driver.
// This resolves the issue where MSSQL does not support the 'json' data type.
func (JSONList[T]) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}

// Contains reports whether v is in the list.
func Contains[T comparable](l JSONList[T], v T) bool {
	for _, e := range l {
		if e == v {
			return true
		}
	}
	return false
}

// Without returns a copy of l with every v removed.
func Without[T comparable](l JSONList[T], v T) JSONList[T] {
	out := make(JSONList[T], 0, len(l))
	for _, e := range l {
		if e != v {
			out = append(out, e)
		}
	}
	return out
}
