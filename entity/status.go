package entity

// Status is the lifecycle state shared by logical and physical records.
type Status string

const (
	StatusPending         Status = "pending"
	StatusReady           Status = "ready"
	StatusPendingDeletion Status = "pending_deletion"
)
