package admin

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockAdminCmd is a test admin command.
type mockAdminCmd struct {
	names       []string
	required    int32
	err         error
	handleCalls int
	lastArgs    []string
}

func (c *mockAdminCmd) Names() []string            { return c.names }
func (c *mockAdminCmd) RequiredAccessLevel() int32 { return c.required }
func (c *mockAdminCmd) Handle(_ context.Context, _ Operator, args []string) (string, error) {
	c.handleCalls++
	c.lastArgs = args
	if c.err != nil {
		return "", c.err
	}
	return "admin ok: " + args[0], nil
}

// mockUserCmd is a test user command.
type mockUserCmd struct {
	names       []string
	handleCalls int
	lastParams  string
}

func (c *mockUserCmd) Names() []string { return c.names }
func (c *mockUserCmd) Handle(_ context.Context, _ Operator, params string) (string, error) {
	c.handleCalls++
	c.lastParams = params
	return "user ok", nil
}

func operator(level int32) Operator {
	return Operator{CitizenID: "gm-1", Name: "TestGM", AccessLevel: level}
}

func TestHandler_RegisterAndCount(t *testing.T) {
	h := NewHandler()
	if h.AdminCommandCount() != 0 {
		t.Errorf("AdminCommandCount = %d, want 0", h.AdminCommandCount())
	}

	h.RegisterAdmin(&mockAdminCmd{names: []string{"test", "test2"}, required: 1})
	if h.AdminCommandCount() != 2 {
		t.Errorf("AdminCommandCount = %d, want 2 (two aliases)", h.AdminCommandCount())
	}

	h.RegisterUser(&mockUserCmd{names: []string{"cmd"}})
	if h.UserCommandCount() != 1 {
		t.Errorf("UserCommandCount = %d, want 1", h.UserCommandCount())
	}
}

func TestHandler_AdminCommand_Success(t *testing.T) {
	h := NewHandler()
	cmd := &mockAdminCmd{names: []string{"setheat"}, required: 1}
	h.RegisterAdmin(cmd)

	reply, ok := h.HandleAdminCommand(context.Background(), operator(LevelGameMaster), "SetHeat corner 50")
	if !ok {
		t.Fatal("HandleAdminCommand returned false, want true")
	}
	if cmd.handleCalls != 1 {
		t.Errorf("Handle called %d times, want 1", cmd.handleCalls)
	}
	if len(cmd.lastArgs) != 3 || cmd.lastArgs[1] != "corner" || cmd.lastArgs[2] != "50" {
		t.Errorf("Handle args = %v, want [SetHeat corner 50]", cmd.lastArgs)
	}
	if reply != "admin ok: SetHeat" {
		t.Errorf("reply = %q", reply)
	}
}

func TestHandler_AdminCommand_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		level     int32
		text      string
		wantReply string
	}{
		{"empty text", LevelAdministrator, "", ""},
		{"unknown command", LevelAdministrator, "nosuchcmd", "Unknown command: //nosuchcmd"},
		{"normal player", LevelUser, "zoneinfo corner", ""},
		{"banned", -1, "zoneinfo corner", ""},
		{"insufficient level", LevelModerator, "zoneinfo corner", "Insufficient access level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			cmd := &mockAdminCmd{names: []string{"zoneinfo"}, required: LevelGameMaster}
			h.RegisterAdmin(cmd)

			reply, ok := h.HandleAdminCommand(context.Background(), operator(tt.level), tt.text)
			if ok {
				t.Error("HandleAdminCommand returned true, want false")
			}
			if cmd.handleCalls != 0 {
				t.Error("Handle should not be called")
			}
			if !strings.HasPrefix(reply, tt.wantReply) {
				t.Errorf("reply = %q, want prefix %q", reply, tt.wantReply)
			}
		})
	}
}

func TestHandler_AdminCommand_Error(t *testing.T) {
	h := NewHandler()
	h.RegisterAdmin(&mockAdminCmd{names: []string{"setrep"}, required: 1, err: errors.New("bad value")})

	reply, ok := h.HandleAdminCommand(context.Background(), operator(LevelAdministrator), "setrep x y z")
	if !ok {
		t.Error("a failing command still counts as executed")
	}
	if reply != "Command error: bad value" {
		t.Errorf("reply = %q", reply)
	}
}

func TestHandler_UserCommand(t *testing.T) {
	h := NewHandler()
	cmd := &mockUserCmd{names: []string{"rep", "reputation"}}
	h.RegisterUser(cmd)

	reply, ok := h.HandleUserCommand(context.Background(), operator(LevelUser), "Reputation  corner ")
	if !ok {
		t.Fatal("HandleUserCommand returned false, want true")
	}
	if cmd.lastParams != "corner" {
		t.Errorf("params = %q, want %q", cmd.lastParams, "corner")
	}
	if reply != "user ok" {
		t.Errorf("reply = %q", reply)
	}

	if _, ok := h.HandleUserCommand(context.Background(), operator(LevelUser), "nosuchcmd"); ok {
		t.Error("HandleUserCommand should return false for unknown command")
	}
	if _, ok := h.HandleUserCommand(context.Background(), operator(LevelUser), ""); ok {
		t.Error("HandleUserCommand should return false for empty text")
	}
}
