package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/udisondev/hotzone/internal/admin"
	"github.com/udisondev/hotzone/internal/observer"
)

// ZoneInfo handles //zoneinfo <zone>.
type ZoneInfo struct {
	source observer.Source
}

// NewZoneInfo creates the zoneinfo command handler.
func NewZoneInfo(source observer.Source) *ZoneInfo {
	return &ZoneInfo{source: source}
}

func (c *ZoneInfo) Names() []string            { return []string{"zoneinfo", "zone"} }
func (c *ZoneInfo) RequiredAccessLevel() int32 { return admin.LevelModerator }

func (c *ZoneInfo) Handle(_ context.Context, _ admin.Operator, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("usage: //zoneinfo <zone>")
	}
	for _, st := range c.source.Zones() {
		if st.ZoneID == args[1] {
			return formatZone(st), nil
		}
	}
	return "", fmt.Errorf("zone %q not found", args[1])
}

func formatZone(st observer.ZoneState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] players=%d active=%t heat=%.1f spawn=x%.2f",
		st.ZoneID, st.Kind, st.Players, st.Active, st.Heat.Heat, st.Heat.SpawnMultiplier)
	if st.Heat.Lockdown {
		fmt.Fprintf(&b, " lockdown until %s", st.Heat.LockdownUntil.Format("15:04:05"))
	}
	if st.Buyers > 0 {
		fmt.Fprintf(&b, " buyers=%d", st.Buyers)
	}
	if s := st.Security; s != nil {
		fmt.Fprintf(&b, " alert=%s suspicion=%.2f guards=%d/%d waves=%d",
			s.LevelName, s.Suspicion, s.GuardsLive, s.GuardsLive+s.GuardsDead, s.WavesFired)
	}
	return b.String()
}
