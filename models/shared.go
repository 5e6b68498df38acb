package models

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// ChangeKind classifies a change event on a backing collection.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent describes a committed mutation on a backing collection.
// Derived views recompute from these; they carry no payload because views
// are always rebuilt from the canonical collections.
type ChangeEvent struct {
	Collection string     `json:"collection"` // "jobs", "pickups", "users", "wallets"
	EntityID   string     `json:"entityId"`
	Kind       ChangeKind `json:"kind"`
}
