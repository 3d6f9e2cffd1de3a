package admin

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/telemetry"
	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/world"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotAdmin       = errors.New("admin login required")
	ErrUsage          = errors.New("bad arguments")
	ErrNoSuchPlayer   = errors.New("no such player")
	ErrLoginDisabled  = errors.New("chat login is disabled")
	ErrBadPassword    = errors.New("wrong password")
	ErrHandlerFailed  = errors.New("command failed")
)

// Server is the slice of the game the command handlers act on.
type Server interface {
	World() *world.World
	Pause()
	Unpause()
	Paused() bool
	Kick(id uint32, reason string) bool
}

// Invocation identifies who issued a command line. Trusted invocations come
// from the operator console and skip the admin check.
type Invocation struct {
	PlayerID uint32
	Trusted  bool
	Reply    func(string)
}

// Context is handed to every handler.
type Context struct {
	Server     Server
	Table      *Table
	Invocation Invocation
}

// Printf sends a line back to the issuer only.
func (c *Context) Printf(format string, args ...any) {
	if c == nil || c.Invocation.Reply == nil {
		return
	}
	c.Invocation.Reply(fmt.Sprintf(format, args...))
}

// Command is one entry of the table.
type Command struct {
	Name       string
	Usage      string
	Privileged bool
	// Control commands only touch the scheduler and may run off the
	// simulation goroutine.
	Control bool
	Run     func(ctx *Context, args []string) error
}

// Table dispatches command lines. Apart from ExecControl, every method must
// run on the simulation goroutine.
type Table struct {
	server   Server
	password string
	logger   telemetry.Logger
	commands map[string]Command
	admins   map[uint32]bool
}

// NewTable builds a table with the default commands registered. An empty
// password disables /login from chat.
func NewTable(server Server, password string, logger telemetry.Logger) *Table {
	t := &Table{
		server:   server,
		password: password,
		logger:   telemetry.OrDiscard(logger),
		commands: make(map[string]Command),
		admins:   make(map[uint32]bool),
	}
	for _, cmd := range defaultCommands() {
		t.Register(cmd)
	}
	return t
}

// Register adds or replaces a command. Names are case-insensitive.
func (t *Table) Register(cmd Command) {
	if t == nil || cmd.Run == nil {
		return
	}
	name := strings.ToLower(strings.TrimSpace(cmd.Name))
	if name == "" {
		return
	}
	cmd.Name = name
	t.commands[name] = cmd
}

// Commands lists the registered commands sorted by name.
func (t *Table) Commands() []Command {
	if t == nil {
		return nil
	}
	out := make([]Command, 0, len(t.commands))
	for _, cmd := range t.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsAdmin reports whether the player logged in from chat.
func (t *Table) IsAdmin(playerID uint32) bool {
	return t != nil && t.admins[playerID]
}

// Logout forgets the player's admin session.
func (t *Table) Logout(playerID uint32) {
	if t == nil {
		return
	}
	delete(t.admins, playerID)
}

// RequireAdmin fails unless inv is trusted or belongs to a logged-in player.
func (t *Table) RequireAdmin(inv Invocation) error {
	if inv.Trusted || t.IsAdmin(inv.PlayerID) {
		return nil
	}
	return ErrNotAdmin
}

// ExecConsole runs an operator line with full privileges.
func (t *Table) ExecConsole(line string, reply func(string)) error {
	return t.exec(Invocation{Trusted: true, Reply: reply}, line)
}

// ExecChat runs a line a player typed into chat. Privileged commands need a
// prior /login.
func (t *Table) ExecChat(playerID uint32, line string, reply func(string)) error {
	return t.exec(Invocation{PlayerID: playerID, Reply: reply}, line)
}

// ExecControl runs line with console privileges when it names a control
// command and reports whether it did. It is safe off the simulation goroutine.
func (t *Table) ExecControl(line string, reply func(string)) (bool, error) {
	if t == nil {
		return false, nil
	}
	name, _ := splitLine(line)
	cmd, ok := t.commands[name]
	if !ok || !cmd.Control {
		return false, nil
	}
	return true, t.run(cmd, Invocation{Trusted: true, Reply: reply}, nil)
}

func (t *Table) exec(inv Invocation, line string) error {
	if t == nil {
		return ErrUnknownCommand
	}
	name, args := splitLine(line)
	if name == "" {
		return nil
	}
	cmd, ok := t.commands[name]
	if !ok {
		t.reply(inv, "unknown command %q, try help", name)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if cmd.Privileged {
		if err := t.RequireAdmin(inv); err != nil {
			t.reply(inv, "%s: you must /login first", name)
			return err
		}
	}
	return t.run(cmd, inv, args)
}

func (t *Table) run(cmd Command, inv Invocation, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Printf("[admin] %s panicked: %v", cmd.Name, r)
			t.reply(inv, "%s failed", cmd.Name)
			err = fmt.Errorf("%w: %s: %v", ErrHandlerFailed, cmd.Name, r)
		}
	}()
	ctx := &Context{Server: t.server, Table: t, Invocation: inv}
	if err = cmd.Run(ctx, args); err != nil {
		if errors.Is(err, ErrUsage) {
			t.reply(inv, "usage: %s", cmd.Usage)
		} else {
			t.reply(inv, "%s: %v", cmd.Name, err)
		}
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	if cmd.Privileged {
		t.logger.Printf("[admin] %s ran %s %s", issuer(inv), cmd.Name, strings.Join(args, " "))
	}
	return nil
}

func (t *Table) login(inv Invocation, password string) error {
	if inv.Trusted {
		t.reply(inv, "console is already trusted")
		return nil
	}
	if t.password == "" {
		return ErrLoginDisabled
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(t.password)) != 1 {
		t.logger.Printf("[admin] failed login from player %d", inv.PlayerID)
		return ErrBadPassword
	}
	t.admins[inv.PlayerID] = true
	t.logger.Printf("[admin] player %d logged in", inv.PlayerID)
	t.reply(inv, "logged in")
	return nil
}

func (t *Table) reply(inv Invocation, format string, args ...any) {
	if inv.Reply != nil {
		inv.Reply(fmt.Sprintf(format, args...))
	}
}

func issuer(inv Invocation) string {
	if inv.Trusted {
		return "console"
	}
	return fmt.Sprintf("player %d", inv.PlayerID)
}

func splitLine(line string) (string, []string) {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}
