package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/udisondev/hotzone/internal/model"
)

// Operator is whoever issued a command.
type Operator struct {
	CitizenID   model.CitizenID
	Name        string
	AccessLevel int32
}

// Command is an admin command (//command).
type Command interface {
	// Handle executes the command. args includes the command name at [0].
	// The returned string is shown to the operator.
	Handle(ctx context.Context, op Operator, args []string) (string, error)
	// Names returns all registered command names (without // prefix).
	Names() []string
	// RequiredAccessLevel returns the minimum access level to use this command.
	RequiredAccessLevel() int32
}

// UserCommand is a player command (/command), available without access checks.
type UserCommand interface {
	// Handle executes the command. params is the rest of the message after the name.
	Handle(ctx context.Context, op Operator, params string) (string, error)
	Names() []string
}

// Handler dispatches admin (//) and user (/) commands.
// Commands are registered once at startup, then read-only.
type Handler struct {
	mu        sync.RWMutex
	adminCmds map[string]Command     // name → Command (lowercase)
	userCmds  map[string]UserCommand // name → UserCommand (lowercase)
}

// NewHandler creates a new admin/user command handler.
func NewHandler() *Handler {
	return &Handler{
		adminCmds: make(map[string]Command, 8),
		userCmds:  make(map[string]UserCommand, 4),
	}
}

// RegisterAdmin registers an admin command under all its names, lowercased.
func (h *Handler) RegisterAdmin(cmd Command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range cmd.Names() {
		h.adminCmds[strings.ToLower(name)] = cmd
	}
}

// RegisterUser registers a user command.
func (h *Handler) RegisterUser(cmd UserCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, name := range cmd.Names() {
		h.userCmds[strings.ToLower(name)] = cmd
	}
}

// HandleAdminCommand processes a message starting with //. text is the
// message without the prefix. Returns the reply for the operator and true
// if a command was executed.
func (h *Handler) HandleAdminCommand(ctx context.Context, op Operator, text string) (string, bool) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", false
	}
	cmdName := strings.ToLower(parts[0])

	h.mu.RLock()
	cmd, ok := h.adminCmds[cmdName]
	h.mu.RUnlock()

	if !ok {
		return "Unknown command: //" + cmdName, false
	}

	al := GetAccessLevel(op.AccessLevel)
	if al == nil || !al.CanUseAdminCommands {
		slog.Warn("unauthorized admin command attempt",
			"operator", op.Name,
			"command", cmdName,
			"accessLevel", op.AccessLevel)
		return "", false
	}

	if op.AccessLevel < cmd.RequiredAccessLevel() {
		slog.Warn("admin command access denied",
			"operator", op.Name,
			"command", cmdName,
			"required", cmd.RequiredAccessLevel(),
			"actual", op.AccessLevel)
		return fmt.Sprintf("Insufficient access level for //%s (need %d, have %d)",
			cmdName, cmd.RequiredAccessLevel(), op.AccessLevel), false
	}

	slog.Info("admin command", "operator", op.Name, "command", text)

	reply, err := cmd.Handle(ctx, op, parts)
	if err != nil {
		slog.Error("admin command failed",
			"operator", op.Name,
			"command", text,
			"error", err)
		return fmt.Sprintf("Command error: %s", err), true
	}
	return reply, true
}

// HandleUserCommand processes a message starting with /. text is the
// message without the prefix.
func (h *Handler) HandleUserCommand(ctx context.Context, op Operator, text string) (string, bool) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", false
	}
	cmdName := strings.ToLower(parts[0])

	h.mu.RLock()
	cmd, ok := h.userCmds[cmdName]
	h.mu.RUnlock()

	if !ok {
		return "", false
	}

	params := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), parts[0]))

	reply, err := cmd.Handle(ctx, op, params)
	if err != nil {
		slog.Error("user command failed",
			"citizen", op.CitizenID,
			"command", text,
			"error", err)
		return fmt.Sprintf("Command error: %s", err), true
	}
	return reply, true
}

// AdminCommandCount returns number of registered admin command names.
func (h *Handler) AdminCommandCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.adminCmds)
}

// UserCommandCount returns number of registered user command names.
func (h *Handler) UserCommandCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userCmds)
}
