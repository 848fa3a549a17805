package enums

// EntityType names a mirrored table: one worksheet per entity on the
// spreadsheet side, one table on the local side.
type EntityType string

const (
	EntityUsers       EntityType = "users"
	EntityMentors     EntityType = "mentors"
	EntityMentees     EntityType = "mentees"
	EntityMentorships EntityType = "mentorships"
	EntitySessions    EntityType = "sessions"
)

func (e EntityType) IsValid() bool {
	switch e {
	case EntityUsers, EntityMentors, EntityMentees, EntityMentorships, EntitySessions:
		return true
	}
	return false
}

// WriteOperation is the mutation kind applied to both stores.
type WriteOperation string

const (
	OpInsert WriteOperation = "insert"
	OpUpdate WriteOperation = "update"
	OpDelete WriteOperation = "delete"
)

func (o WriteOperation) IsValid() bool {
	switch o {
	case OpInsert, OpUpdate, OpDelete:
		return true
	}
	return false
}

// PendingWriteStatus tracks a queued mirror write through its lifecycle.
// Rows are deleted outright on success, so there is no succeeded status.
type PendingWriteStatus string

const (
	PendingWritePending    PendingWriteStatus = "pending"
	PendingWriteProcessing PendingWriteStatus = "processing"
	PendingWriteFailed     PendingWriteStatus = "failed"
)

// Role is the access level attached to a user account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMentee Role = "mentee"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMentee
}
