package security

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/hotzone/internal/data"
	"github.com/udisondev/hotzone/internal/events"
	"github.com/udisondev/hotzone/internal/game/reject"
	"github.com/udisondev/hotzone/internal/game/roll"
	"github.com/udisondev/hotzone/internal/ledger"
	"github.com/udisondev/hotzone/internal/model"
)

// StepState is the process-lifetime state of one objective step. It belongs
// to the zone, not to an instance, so it survives deactivation and reloads.
type StepState struct {
	Opened   bool      `json:"opened"`
	OpenedAt time.Time `json:"opened_at,omitzero"`
	// ReadyAt blocks new attempts after the step was re-locked.
	ReadyAt time.Time `json:"ready_at,omitzero"`
}

type stepKey struct {
	zone      string
	objective string
	step      int
}

// StepResult describes an objective attempt.
type StepResult struct {
	ObjectiveID string `json:"objective_id"`
	Step        int    `json:"step"`
	// AlreadyOpen: the step was open and no tool or reward changed hands.
	AlreadyOpen  bool   `json:"already_open,omitempty"`
	ToolUsed     string `json:"tool_used,omitempty"`
	ToolConsumed bool   `json:"tool_consumed,omitempty"`
	RewardItem   string `json:"reward_item,omitempty"`
	RewardQty    int    `json:"reward_qty,omitempty"`
	RewardMoney  int64  `json:"reward_money,omitempty"`
}

// resolveTool returns the best tool the player holds that satisfies tier.
// Tools are scanned best first.
func (in *Instance) resolveTool(ctx context.Context, citizen model.CitizenID, tier int) (*data.ToolDef, error) {
	tools := in.ctl.catalog.Current().Tools
	for i := range tools {
		t := &tools[i]
		if t.Tier < tier {
			continue
		}
		ok, err := in.ctl.auth.CheckAccessItem(ctx, citizen, t.ItemID)
		if err != nil {
			return nil, fmt.Errorf("checking tool %s: %w", t.ItemID, err)
		}
		if ok {
			return t, nil
		}
	}
	return nil, nil
}

// AttemptStep tries to open one step of an objective. Steps open in order.
func (in *Instance) AttemptStep(ctx context.Context, citizen model.CitizenID, objectiveID string, step int) (StepResult, error) {
	def := in.def()
	obj := def.Objective(objectiveID)
	if obj == nil {
		return StepResult{}, reject.Newf(reject.CodeInvalidObjective, "%q in %s", objectiveID, def.ID)
	}
	if step < 0 || step >= len(obj.Steps) {
		return StepResult{}, reject.Newf(reject.CodeInvalidStep, "%s has %d steps", objectiveID, len(obj.Steps))
	}
	sd := obj.Steps[step]
	res := StepResult{ObjectiveID: objectiveID, Step: step}

	p, ok := in.ctl.world.Snapshot(citizen)
	if !ok || p.Location.Distance(obj.Location) > in.ctl.cfg.InteractRange {
		return StepResult{}, reject.New(reject.CodeNotInRange, obj.Label)
	}

	maxAlert, err := ParseAlertLevel(sd.MaxAlert)
	if err != nil {
		return StepResult{}, fmt.Errorf("objective %s step %d: %w", objectiveID, step, err)
	}

	now := in.ctl.now()
	in.mu.Lock()
	level := in.machine.Level()
	in.mu.Unlock()

	c := in.ctl
	c.omu.Lock()
	prevOpen := step == 0 || c.step(def.ID, objectiveID, step-1).Opened
	st := *c.step(def.ID, objectiveID, step)
	c.omu.Unlock()

	if !prevOpen {
		return StepResult{}, reject.Newf(reject.CodeStepLocked, "open step %d first", step-1)
	}
	if st.Opened {
		res.AlreadyOpen = true
		return res, nil
	}
	if level > maxAlert {
		return StepResult{}, reject.AlertTooHigh(level.String(), maxAlert.String())
	}
	if now.Before(st.ReadyAt) {
		return StepResult{}, reject.Cooldown(st.ReadyAt.Sub(now))
	}

	var tool *data.ToolDef
	if sd.RequiredTier > 0 {
		tool, err = in.resolveTool(ctx, citizen, sd.RequiredTier)
		if err != nil {
			return StepResult{}, err
		}
		if tool == nil {
			rj := reject.Newf(reject.CodeAccessDenied, "needs a tier %d tool", sd.RequiredTier)
			rj.Required = fmt.Sprintf("tool tier %d", sd.RequiredTier)
			return StepResult{}, rj
		}
		res.ToolUsed = tool.ItemID
	}

	if sd.RewardItem != "" && sd.RewardQty > 0 {
		fits, err := in.ctl.auth.CanCarryItem(ctx, citizen, sd.RewardItem, sd.RewardQty)
		if err != nil {
			return StepResult{}, fmt.Errorf("checking carry capacity: %w", err)
		}
		if !fits {
			return StepResult{}, reject.New(reject.CodeInventoryFull, sd.RewardItem)
		}
	}

	// Состояние могло измениться, пока шли запросы к authority.
	c.omu.Lock()
	cur := c.step(def.ID, objectiveID, step)
	if cur.Opened {
		c.omu.Unlock()
		res.AlreadyOpen = true
		return res, nil
	}
	cur.Opened = true
	cur.OpenedAt = now
	c.omu.Unlock()

	if tool != nil && roll.Chance(in.ctl.rnd, tool.ConsumeChance) {
		consumed, err := in.ctl.auth.ConsumeAccessItem(ctx, citizen, tool.ItemID)
		if err != nil {
			slog.Error("consuming tool", "citizen", citizen, "tool", tool.ItemID, "error", err)
		}
		res.ToolConsumed = consumed
	}

	if sd.RewardItem != "" && sd.RewardQty > 0 {
		if _, err := in.ctl.auth.AddItem(ctx, citizen, sd.RewardItem, sd.RewardQty); err != nil {
			slog.Error("granting objective reward", "citizen", citizen, "item", sd.RewardItem, "error", err)
		} else {
			res.RewardItem, res.RewardQty = sd.RewardItem, sd.RewardQty
		}
	}
	if sd.RewardMoney > 0 {
		memo := fmt.Sprintf("objective %s step %d in %s", objectiveID, step, def.ID)
		if err := in.ctl.auth.AddMoney(ctx, citizen, sd.RewardMoney, memo); err != nil {
			slog.Error("paying objective reward", "citizen", citizen, "amount", sd.RewardMoney, "error", err)
		} else {
			res.RewardMoney = sd.RewardMoney
		}
	}
	if step == len(obj.Steps)-1 {
		in.ctl.ledger.Notify(ctx, p.Group, ledger.ActivityObjective, 1)
	}

	slog.Info("objective step opened",
		"zone", def.ID,
		"objective", objectiveID,
		"step", step,
		"citizen", citizen,
		"tool", res.ToolUsed)
	in.ctl.events.Publish(events.Event{
		Kind:      events.KindObjectiveOpened,
		ZoneID:    def.ID,
		CitizenID: citizen,
		At:        now,
		Data: map[string]any{
			"objective": objectiveID,
			"step":      step,
			"tool":      res.ToolUsed,
			"consumed":  res.ToolConsumed,
		},
	})
	return res, nil
}

// step returns the state for key, creating it. Must hold c.omu.
func (c *Controller) step(zoneID, objective string, step int) *StepState {
	k := stepKey{zone: zoneID, objective: objective, step: step}
	s, ok := c.steps[k]
	if !ok {
		s = &StepState{}
		c.steps[k] = s
	}
	return s
}

// Steps returns a copy of the state of every step of an objective. Works
// for inactive zones too.
func (c *Controller) Steps(zoneID, objectiveID string) []StepState {
	def := c.catalog.Current().Zone(zoneID)
	if def == nil {
		return nil
	}
	obj := def.Objective(objectiveID)
	if obj == nil {
		return nil
	}
	c.omu.Lock()
	defer c.omu.Unlock()
	out := make([]StepState, len(obj.Steps))
	for i := range obj.Steps {
		if s, ok := c.steps[stepKey{zone: zoneID, objective: objectiveID, step: i}]; ok {
			out[i] = *s
		}
	}
	return out
}

// Steps returns a copy of the state of every step of an objective.
func (in *Instance) Steps(objectiveID string) []StepState {
	return in.ctl.Steps(in.zone.ID(), objectiveID)
}

func (c *Controller) anyOpen(zoneID string, obj *data.ObjectiveDef) bool {
	c.omu.Lock()
	defer c.omu.Unlock()
	for i := range obj.Steps {
		if s, ok := c.steps[stepKey{zone: zoneID, objective: obj.ID, step: i}]; ok && s.Opened {
			return true
		}
	}
	return false
}

// relock closes every open step and starts its re-lock cooldown.
func (c *Controller) relock(zoneID string, obj *data.ObjectiveDef, now time.Time) {
	c.omu.Lock()
	defer c.omu.Unlock()
	for i := range obj.Steps {
		s := c.step(zoneID, obj.ID, i)
		if s.Opened {
			s.Opened = false
			s.ReadyAt = now.Add(obj.Steps[i].Cooldown)
		}
	}
}

// rediscover re-locks opened objectives a guard can see. Must hold in.mu.
// Returns true when anything was re-locked.
func (in *Instance) rediscover(def *data.ZoneDef, now time.Time) bool {
	found := false
	for oi := range def.Objectives {
		obj := &def.Objectives[oi]
		if !in.ctl.anyOpen(def.ID, obj) || !in.guardSees(obj.Location) {
			continue
		}
		in.ctl.relock(def.ID, obj, now)
		found = true
		slog.Info("objective rediscovered", "zone", def.ID, "objective", obj.ID)
		in.ctl.events.Publish(events.Event{
			Kind:   events.KindObjectiveLocked,
			ZoneID: def.ID,
			At:     now,
			Data:   map[string]any{"objective": obj.ID},
		})
	}
	return found
}

func (in *Instance) guardSees(target model.Location) bool {
	w := in.ctl.world
	for _, g := range in.guards {
		if !g.participating() {
			continue
		}
		pos, ok := w.Location(g.ActorID)
		if !ok || pos.Distance(target) > in.ctl.cfg.DiscoveryRange {
			continue
		}
		if w.IsFacing(g.ActorID, target) && w.LineOfSight(pos, target) {
			return true
		}
	}
	return false
}
