// Package admin dispatches operator (//) and player (/) chat commands for
// the zone server.
package admin

// AccessLevel defines an operator access level with associated permissions.
// Level 0 = normal player, 1+ = moderator, 100+ = full admin.
type AccessLevel struct {
	Level               int32
	Name                string
	CanUseAdminCommands bool
	// CanEditState allows commands that change heat or reputation.
	CanEditState bool
}

// Predefined access levels.
const (
	LevelUser          int32 = 0
	LevelModerator     int32 = 1
	LevelGameMaster    int32 = 2
	LevelAdministrator int32 = 100
)

var defaultAccessLevels = map[int32]*AccessLevel{
	LevelUser:          {Level: LevelUser, Name: "User"},
	LevelModerator:     {Level: LevelModerator, Name: "Moderator", CanUseAdminCommands: true},
	LevelGameMaster:    {Level: LevelGameMaster, Name: "Game Master", CanUseAdminCommands: true, CanEditState: true},
	LevelAdministrator: {Level: LevelAdministrator, Name: "Administrator", CanUseAdminCommands: true, CanEditState: true},
}

// GetAccessLevel returns AccessLevel for the given level value.
// Unknown levels inherit from the highest known level below them.
// Negative levels (banned) return nil.
func GetAccessLevel(level int32) *AccessLevel {
	if level < 0 {
		return nil
	}

	if al, ok := defaultAccessLevels[level]; ok {
		return al
	}

	var best *AccessLevel
	for _, al := range defaultAccessLevels {
		if al.Level <= level && (best == nil || al.Level > best.Level) {
			best = al
		}
	}
	return best
}
