package ir

import "fmt"

// ObjectType names an object-type family that can be replicated, or the
// type of object a benefactor column points at.
type ObjectType string

const (
	ObjectTypeEntity     ObjectType = "ENTITY"
	ObjectTypeSubmission ObjectType = "SUBMISSION"
	ObjectTypeEvaluation ObjectType = "EVALUATION"
)

// ValidObjectTypes defines the replicable object types.
var ValidObjectTypes = map[ObjectType]bool{
	ObjectTypeEntity:     true,
	ObjectTypeSubmission: true,
}

// SubType narrows an ObjectType (e.g. "file" or "folder" for ENTITY).
type SubType string

// ObjectIdentity uniquely identifies a replicable unit.
type ObjectIdentity struct {
	Type    ObjectType `json:"object_type"`
	ID      int64      `json:"object_id"`
	Version *int64     `json:"version,omitempty"`
}

func (o ObjectIdentity) String() string {
	if o.Version != nil {
		return fmt.Sprintf("%s:%d.%d", o.Type, o.ID, *o.Version)
	}
	return fmt.Sprintf("%s:%d", o.Type, o.ID)
}

// ChecksumEntry is one element of a checksum stream.
// Checksum zero is a valid checksum.
type ChecksumEntry struct {
	ObjectID int64  `json:"object_id"`
	Checksum uint64 `json:"checksum"`
}

// ChangeType distinguishes the two kinds of replication change.
type ChangeType string

const (
	ChangeCreateOrUpdate ChangeType = "CREATE_OR_UPDATE"
	ChangeDelete         ChangeType = "DELETE"
)

// ChangeEvent asks the applier to bring one replica object in line with the
// truth store. It only ever lives on a queue.
type ChangeEvent struct {
	ObjectID   int64      `json:"object_id" yaml:"object_id"`
	ObjectType ObjectType `json:"object_type" yaml:"object_type"`
	ChangeType ChangeType `json:"change_type" yaml:"change_type"`
	Version    *int64     `json:"version,omitempty" yaml:"version,omitempty"`
	Etag       string     `json:"etag,omitempty" yaml:"etag,omitempty"`
}

// Identity returns the identity of the object the event refers to.
func (e ChangeEvent) Identity() ObjectIdentity {
	return ObjectIdentity{Type: e.ObjectType, ID: e.ObjectID, Version: e.Version}
}

// Validate checks the event for contract violations.
func (e ChangeEvent) Validate() error {
	if !ValidObjectTypes[e.ObjectType] {
		return fmt.Errorf("change event %d: unknown object type %q", e.ObjectID, e.ObjectType)
	}
	switch e.ChangeType {
	case ChangeCreateOrUpdate, ChangeDelete:
		return nil
	default:
		return fmt.Errorf("change event %d: unknown change type %q", e.ObjectID, e.ChangeType)
	}
}

// Int64 returns a pointer to v. Used for optional versions and parent ids.
func Int64(v int64) *int64 {
	return &v
}
