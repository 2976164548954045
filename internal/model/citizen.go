package model

// CitizenID is the stable player identity used as the key for every per-player
// record (reputation, negotiation and delivery slots). It survives reconnects,
// unlike a connection handle.
type CitizenID string

// ActorID identifies a transient actor (buyer, guard) spawned by a zone.
type ActorID uint32

// Posture flags describe what the player is visibly doing. Guards read them
// to scale detection range and to see through disguises.
type Posture struct {
	Running   bool `json:"running"`
	Crouching bool `json:"crouching"`
	Armed     bool `json:"armed"`
	InVehicle bool `json:"in_vehicle"`
}

// Suspicious reports whether the posture breaks a passive disguise.
func (p Posture) Suspicious() bool {
	return p.Running || p.Crouching || p.Armed
}

// PlayerSnapshot is the per-tick view of a player that zone controllers consume.
// It is produced by the world collaborator and never mutated by the core.
type PlayerSnapshot struct {
	CitizenID CitizenID `json:"citizen_id"`
	Location  Location  `json:"location"`
	Posture   Posture   `json:"posture"`

	// Outfit is the disguise currently worn, empty if none.
	Outfit string `json:"outfit,omitempty"`
	// VehicleModel is set while Posture.InVehicle is true.
	VehicleModel string `json:"vehicle_model,omitempty"`
	// Group is the player's gang/crew used by the reputation ledger, empty if none.
	Group string `json:"group,omitempty"`
}
