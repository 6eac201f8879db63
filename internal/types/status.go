package types

// Status is a type for the lifecycle status of a locally persisted resource.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)
