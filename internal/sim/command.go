package sim

import (
	"time"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/entity"
)

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandJoin     CommandType = "Join"
	CommandLeave    CommandType = "Leave"
	CommandMouse    CommandType = "Mouse"
	CommandSplit    CommandType = "Split"
	CommandEject    CommandType = "Eject"
	CommandSpawn    CommandType = "Spawn"
	CommandSpectate CommandType = "Spectate"
	CommandRoam     CommandType = "Roam"
	CommandChat     CommandType = "Chat"
	CommandConsole  CommandType = "Console"
)

// Conn is the outbound half of a client connection. Send must not block.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// JoinCommand admits a connection as a player.
type JoinCommand struct {
	Conn   Conn
	Human  bool
	Remote string
	// OnJoined runs on the simulation goroutine once the player exists.
	OnJoined func(*entity.Player)
}

// LeaveCommand removes the actor's player.
type LeaveCommand struct {
	Reason string
}

// MouseCommand carries the actuation target in world coordinates.
type MouseCommand struct {
	X float64
	Y float64
}

// SpawnCommand requests a fresh cell.
type SpawnCommand struct {
	Name string
	Skin string
}

// ChatCommand carries a chat line; lines starting with '/' go to the admin table.
type ChatCommand struct {
	Flags uint8
	Text  string
}

// ConsoleCommand carries a trusted operator command line.
type ConsoleCommand struct {
	Line  string
	Reply func(string)
	// Done, when set, runs after the line has been handled.
	Done func()
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64
	ActorID    uint32
	Type       CommandType
	IssuedAt   time.Time
	Join       *JoinCommand
	Leave      *LeaveCommand
	Mouse      *MouseCommand
	Spawn      *SpawnCommand
	Chat       *ChatCommand
	Console    *ConsoleCommand
}
