package model

import "time"

// ResourceType identifies what kind of bookable resource a record
// describes.  Only meeting rooms and desks exist today.
type ResourceType string

const (
	ResourceTypeRoom ResourceType = "ROOM" // a meeting room
	ResourceTypeDesk ResourceType = "DESK" // an individual desk
)

// Valid reports whether the type is one of the known resource kinds.
func (t ResourceType) Valid() bool {
	return t == ResourceTypeRoom || t == ResourceTypeDesk
}

// Resource represents a bookable room or desk.  The booking engine reads
// resources but never mutates them; maintenance and block flags are
// managed through the directory endpoints and simply make the resource
// unavailable for new bookings while set.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – human-readable name ("Board Room 3", "Desk 14-B").
//  Type             – ROOM or DESK.
//  Capacity         – seats for rooms; always 1 for desks.
//  Location         – free-form floor/building description.
//  UnderMaintenance – resource is closed for maintenance.
//  Blocked          – resource is administratively blocked.
//  BlockReason      – optional reason recorded when blocking.
//  BlockedFrom      – optional start of the block window.
//  BlockedUntil     – optional end of the block window.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Resource struct {
	ID               uint64       // resources.id
	Name             string       // resources.name
	Type             ResourceType // resources.type
	Capacity         uint32       // resources.capacity
	Location         string       // resources.location
	UnderMaintenance bool         // resources.under_maintenance
	Blocked          bool         // resources.blocked
	BlockReason      *string      // resources.block_reason (nullable)
	BlockedFrom      *time.Time   // resources.blocked_from (nullable)
	BlockedUntil     *time.Time   // resources.blocked_until (nullable)
	CreatedAt        time.Time    // resources.created_at
	UpdatedAt        time.Time    // resources.updated_at
}

// Bookable reports whether new bookings may be placed on the resource.
// Maintenance and block flags both make it unavailable.
func (r *Resource) Bookable() bool {
	return !r.UnderMaintenance && !r.Blocked
}
