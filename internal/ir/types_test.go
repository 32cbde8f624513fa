package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeEvent_Validate(t *testing.T) {
	ok := ChangeEvent{ObjectID: 1, ObjectType: ObjectTypeEntity, ChangeType: ChangeDelete}
	assert.NoError(t, ok.Validate())

	badType := ChangeEvent{ObjectID: 1, ObjectType: "WIDGET", ChangeType: ChangeDelete}
	assert.Error(t, badType.Validate())

	badChange := ChangeEvent{ObjectID: 1, ObjectType: ObjectTypeEntity, ChangeType: "UPSERT"}
	assert.Error(t, badChange.Validate())
}

func TestObjectIdentity_String(t *testing.T) {
	assert.Equal(t, "ENTITY:12", ObjectIdentity{Type: ObjectTypeEntity, ID: 12}.String())
	assert.Equal(t, "ENTITY:12.3", ObjectIdentity{Type: ObjectTypeEntity, ID: 12, Version: Int64(3)}.String())
}

func TestObjectRow_Identity(t *testing.T) {
	row := ObjectRow{ObjectType: ObjectTypeSubmission, ObjectID: 7, Version: 2}
	id := row.Identity()
	assert.Equal(t, int64(7), id.ID)
	if assert.NotNil(t, id.Version) {
		assert.Equal(t, int64(2), *id.Version)
	}
}
