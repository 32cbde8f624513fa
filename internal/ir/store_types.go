package ir

// ObjectRow is the attribute data replicated for a single object version.
// The same shape is stored in the truth store and in the replica.
type ObjectRow struct {
	ObjectType   ObjectType     `json:"object_type" yaml:"object_type"`
	ObjectID     int64          `json:"object_id" yaml:"object_id"`
	Version      int64          `json:"version" yaml:"version"`
	IsCurrent    bool           `json:"is_current" yaml:"is_current"`
	SubType      SubType        `json:"sub_type" yaml:"sub_type"`
	ParentID     *int64         `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	BenefactorID *int64         `json:"benefactor_id,omitempty" yaml:"benefactor_id,omitempty"`
	Etag         string         `json:"etag" yaml:"etag"`
	Name         string         `json:"name" yaml:"name"`
	Annotations  map[string]any `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	InTrash      bool           `json:"in_trash,omitempty" yaml:"in_trash,omitempty"`
}

// Identity returns the versioned identity of the row.
func (r ObjectRow) Identity() ObjectIdentity {
	return ObjectIdentity{Type: r.ObjectType, ID: r.ObjectID, Version: Int64(r.Version)}
}
