package types

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorJoinsMessages(t *testing.T) {
	err := ValidationError("Lead fullname is required", "Lead email is required")

	assert.Equal(t, http.StatusBadRequest, err.Code)
	assert.Equal(t, "Lead fullname is required, Lead email is required", err.Message)
	assert.Len(t, err.Messages, 2)
	assert.True(t, IsKind(err, KindValidation))
}

func TestStorageErrorKeepsNotFound(t *testing.T) {
	missing := StorageError("delete failed", NotFoundError("object %s not found", "documents/a.pdf"))
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.True(t, IsKind(missing, KindStorage))

	failed := StorageError("put failed", errors.New("connection reset"))
	assert.Equal(t, http.StatusInternalServerError, failed.Code)
}

func TestDependencyErrorUnwraps(t *testing.T) {
	cause := errors.New("service row changed")
	err := DependencyError("service link", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Message, "service link")
	assert.True(t, IsKind(err, KindDependency))
	assert.False(t, IsKind(err, KindStorage))
}

func TestDependencyErrorKeepsCustomMessage(t *testing.T) {
	err := DependencyError("otp mail", &CustomError{Code: http.StatusInternalServerError, Message: "Error sending email", Type: KindInternal})

	assert.Equal(t, "Error sending email", err.Message)
	assert.True(t, IsKind(err, KindDependency))
}

func TestObjectID(t *testing.T) {
	id := NewObjectID()
	assert.Len(t, id.String(), 24)
	assert.True(t, IsValidObjectID(id.String()))

	_, err := ParseObjectID("Service ID", "not-an-id")
	require.Error(t, err)
	assert.Equal(t, "Service ID is invalid", err.(*CustomError).Message)

	var empty ObjectID
	assert.Nil(t, empty.Ptr())
	assert.Equal(t, id, *id.Ptr())

	var scanned ObjectID
	require.NoError(t, scanned.Scan([]byte(id)))
	assert.Equal(t, id, scanned)
}

func TestFlexList(t *testing.T) {
	var body struct {
		IDs FlexList[string] `json:"ids"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"ids":"a"}`), &body))
	assert.Equal(t, []string{"a"}, body.IDs.Slice())

	require.NoError(t, json.Unmarshal([]byte(`{"ids":["a","b"]}`), &body))
	assert.Equal(t, []string{"a", "b"}, body.IDs.Slice())
}

func TestParseStringList(t *testing.T) {
	assert.Equal(t, []string{"go", "crm"}, ParseStringList(`["go", "crm"]`))
	assert.Equal(t, []string{"go", "crm"}, ParseStringList("go, crm,"))
	assert.Equal(t, []string{"go"}, ParseStringList(`"go"`))
	assert.Nil(t, ParseStringList("  "))
}
