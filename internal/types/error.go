// error.go
//
// A CRM data service built on the jam-build data service stack
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-crm.
// jam-build-crm is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-crm is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-crm.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind names one class of the error taxonomy.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "notFound"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindConflict       Kind = "conflict"
	KindStorage        Kind = "storage"
	KindDependency     Kind = "dependency"
	KindInternal       Kind = "internal"
)

// CustomError is the error value every layer returns to the terminal translator.
// Code is the HTTP status the translator responds with.
type CustomError struct {
	Code     int      `json:"code"`
	Message  string   `json:"message"`
	Messages []string `json:"messages,omitempty"`
	Type     Kind     `json:"type"`
	Err      error    `json:"-"`
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s [type: %s]: %v", e.Code, e.Message, e.Type, e.Err)
	}
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// ValidationError collects every field message into one 400 error.
func ValidationError(messages ...string) *CustomError {
	return &CustomError{
		Code:     http.StatusBadRequest,
		Message:  strings.Join(messages, ", "),
		Messages: messages,
		Type:     KindValidation,
	}
}

// NotFoundError is a 404 with a formatted message.
func NotFoundError(format string, args ...any) *CustomError {
	return &CustomError{
		Code:    http.StatusNotFound,
		Message: fmt.Sprintf(format, args...),
		Type:    KindNotFound,
	}
}

// AuthenticationError is a 401: missing, malformed, expired or forged credentials.
func AuthenticationError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusUnauthorized,
		Message: message,
		Type:    KindAuthentication,
	}
}

// AuthorizationError is a 403: the caller is known but not permitted.
func AuthorizationError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusForbidden,
		Message: message,
		Type:    KindAuthorization,
	}
}

// ConflictError is a 400 raised for duplicate unique fields and lost version races.
func ConflictError(format string, args ...any) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
		Type:    KindConflict,
	}
}

// StorageError wraps a failed bucket operation. A missing object keeps a 404 code.
func StorageError(message string, err error) *CustomError {
	code := http.StatusInternalServerError
	var ce *CustomError
	if errors.As(err, &ce) && ce.Code == http.StatusNotFound {
		code = http.StatusNotFound
	}
	return &CustomError{
		Code:    code,
		Message: message,
		Type:    KindStorage,
		Err:     err,
	}
}

// DependencyError reports a dependent write that failed after the primary write committed.
// The primary write is not undone. A CustomError cause keeps its own message.
func DependencyError(step string, err error) *CustomError {
	message := fmt.Sprintf("%s failed after the primary change was saved", step)
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		message = ce.Message
	}
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Type:    KindDependency,
		Err:     err,
	}
}

// InternalError hides the cause from the client behind a generic message.
func InternalError(err error) *CustomError {
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
		Type:    KindInternal,
		Err:     err,
	}
}

// IsKind reports whether err is, or wraps, a CustomError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *CustomError
	return errors.As(err, &ce) && ce.Type == kind
}
