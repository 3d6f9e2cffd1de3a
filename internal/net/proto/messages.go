// Package proto implements the binary wire protocol spoken over the game
// websocket: a one-byte opcode followed by a little-endian payload.
package proto

import "fmt"

// Version is the protocol revision the server announces and expects.
const Version = 6

// Client to server opcodes.
const (
	OpSpawn           uint8 = 0
	OpSpectate        uint8 = 1
	OpMouse           uint8 = 16
	OpSplit           uint8 = 17
	OpRoam            uint8 = 18
	OpEject           uint8 = 21
	OpChatSend        uint8 = 99
	OpProtocolVersion uint8 = 254
	OpHandshakeKey    uint8 = 255
)

// Server to client opcodes.
const (
	OpUpdateNodes       uint8 = 16
	OpUpdatePosition    uint8 = 17
	OpClearAll          uint8 = 18
	OpClearOwned        uint8 = 20
	OpAddNode           uint8 = 32
	OpLeaderboardText   uint8 = 48
	OpLeaderboardRanked uint8 = 49
	OpLeaderboardPie    uint8 = 50
	OpSetBorder         uint8 = 64
	OpServerInfo        uint8 = 90
	OpChatMessage       uint8 = 99
)

// Node record flags.
const (
	NodeVirus    uint8 = 0x01
	NodeColor    uint8 = 0x02
	NodeSkin     uint8 = 0x04
	NodeName     uint8 = 0x08
	NodeAgitated uint8 = 0x10
	NodeEjected  uint8 = 0x20
)

// Message is any frame the codec understands.
type Message interface {
	Opcode() uint8
	encode(w *Writer)
}

// Encode renders msg as a complete frame.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, fmt.Errorf("proto: encode nil message")
	}
	w := NewWriter(msg.Opcode(), 16)
	msg.encode(w)
	return w.Bytes()
}

type decoder func(r *Reader) Message

var clientDecoders = map[uint8]decoder{
	OpSpawn: func(r *Reader) Message {
		return Spawn{Name: r.String(), Skin: r.String()}
	},
	OpSpectate: func(*Reader) Message { return Spectate{} },
	OpMouse: func(r *Reader) Message {
		return Mouse{X: r.I32(), Y: r.I32(), Reserved: r.U32()}
	},
	OpSplit: func(*Reader) Message { return Split{} },
	OpRoam:  func(*Reader) Message { return Roam{} },
	OpEject: func(*Reader) Message { return Eject{} },
	OpChatSend: func(r *Reader) Message {
		return ChatSend{Flags: r.U8(), Text: r.String()}
	},
	OpProtocolVersion: func(r *Reader) Message { return ProtocolVersion{Version: r.U32()} },
	OpHandshakeKey:    func(r *Reader) Message { return HandshakeKey{Key: r.U32()} },
}

var serverDecoders = map[uint8]decoder{
	OpUpdateNodes: decodeUpdateNodes,
	OpUpdatePosition: func(r *Reader) Message {
		return UpdatePosition{X: r.F32(), Y: r.F32(), Scale: r.F32()}
	},
	OpClearAll:   func(*Reader) Message { return ClearAll{} },
	OpClearOwned: func(*Reader) Message { return ClearOwned{} },
	OpAddNode:    func(r *Reader) Message { return AddNode{ID: r.U32()} },
	OpLeaderboardText: func(r *Reader) Message {
		var msg LeaderboardText
		n := r.Count(uint64(r.U32()), 2)
		for i := 0; i < n && r.Err() == nil; i++ {
			msg.Lines = append(msg.Lines, r.String())
		}
		return msg
	},
	OpLeaderboardRanked: func(r *Reader) Message {
		var msg LeaderboardRanked
		n := r.Count(uint64(r.U32()), 6)
		for i := 0; i < n && r.Err() == nil; i++ {
			msg.Entries = append(msg.Entries, RankedEntry{Highlight: r.U32(), Name: r.String()})
		}
		return msg
	},
	OpLeaderboardPie: func(r *Reader) Message {
		var msg LeaderboardPie
		n := r.Count(uint64(r.U32()), 4)
		for i := 0; i < n && r.Err() == nil; i++ {
			msg.Fractions = append(msg.Fractions, r.F32())
		}
		return msg
	},
	OpSetBorder: func(r *Reader) Message {
		return SetBorder{
			MinX: r.F64(), MinY: r.F64(), MaxX: r.F64(), MaxY: r.F64(),
			GameType: r.U32(), ServerName: r.String(),
		}
	},
	OpServerInfo: func(r *Reader) Message {
		return ServerInfo{
			UptimeSeconds: r.U32(),
			Players:       r.U16(),
			Alive:         r.U16(),
			Spectators:    r.U16(),
			Tick:          r.U32(),
			UpdateMillis:  r.F32(),
			Mode:          r.String(),
		}
	},
	OpChatMessage: func(r *Reader) Message {
		return ChatMessage{
			Flags: r.U8(), R: r.U8(), G: r.U8(), B: r.U8(),
			Name: r.String(), Text: r.String(),
		}
	},
}

// DecodeClient parses a client to server frame. Trailing bytes after the
// last field are ignored.
func DecodeClient(frame []byte) (Message, error) {
	return decode(frame, clientDecoders)
}

// DecodeServer parses a server to client frame.
func DecodeServer(frame []byte) (Message, error) {
	return decode(frame, serverDecoders)
}

func decode(frame []byte, table map[uint8]decoder) (Message, error) {
	if len(frame) == 0 {
		return nil, ErrEmpty
	}
	fn, ok := table[frame[0]]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownOpcode, frame[0])
	}
	r := NewReader(frame[1:])
	msg := fn(r)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("opcode %d: %w", frame[0], err)
	}
	return msg, nil
}

// ProtocolVersion opens a connection.
type ProtocolVersion struct{ Version uint32 }

func (ProtocolVersion) Opcode() uint8      { return OpProtocolVersion }
func (m ProtocolVersion) encode(w *Writer) { w.U32(m.Version) }

// HandshakeKey completes the handshake.
type HandshakeKey struct{ Key uint32 }

func (HandshakeKey) Opcode() uint8      { return OpHandshakeKey }
func (m HandshakeKey) encode(w *Writer) { w.U32(m.Key) }

// Spawn asks for a fresh cell.
type Spawn struct {
	Name string
	Skin string
}

func (Spawn) Opcode() uint8 { return OpSpawn }
func (m Spawn) encode(w *Writer) {
	w.String(m.Name)
	w.String(m.Skin)
}

type Spectate struct{}

func (Spectate) Opcode() uint8  { return OpSpectate }
func (Spectate) encode(*Writer) {}

// Mouse carries the cursor in world coordinates.
type Mouse struct {
	X        int32
	Y        int32
	Reserved uint32
}

func (Mouse) Opcode() uint8 { return OpMouse }
func (m Mouse) encode(w *Writer) {
	w.I32(m.X)
	w.I32(m.Y)
	w.U32(m.Reserved)
}

type Split struct{}

func (Split) Opcode() uint8  { return OpSplit }
func (Split) encode(*Writer) {}

// Roam toggles the free camera while spectating.
type Roam struct{}

func (Roam) Opcode() uint8  { return OpRoam }
func (Roam) encode(*Writer) {}

type Eject struct{}

func (Eject) Opcode() uint8  { return OpEject }
func (Eject) encode(*Writer) {}

// ChatSend is a chat line typed by the player.
type ChatSend struct {
	Flags uint8
	Text  string
}

func (ChatSend) Opcode() uint8 { return OpChatSend }
func (m ChatSend) encode(w *Writer) {
	w.U8(m.Flags)
	w.String(m.Text)
}

// EatRecord pairs an eater with the cell it consumed.
type EatRecord struct {
	Eater uint32
	Eaten uint32
}

// NodeRecord is one cell update. Color, Skin and Name are only on the wire
// when the matching flag is set.
type NodeRecord struct {
	ID    uint32
	X     int32
	Y     int32
	Size  uint16
	Flags uint8
	R     uint8
	G     uint8
	B     uint8
	Skin  string
	Name  string
}

// UpdateNodes is the per-tick world diff for one client.
type UpdateNodes struct {
	Eats     []EatRecord
	Nodes    []NodeRecord
	Removals []uint32
}

func (UpdateNodes) Opcode() uint8 { return OpUpdateNodes }
func (m UpdateNodes) encode(w *Writer) {
	w.Count16(len(m.Eats))
	for _, e := range m.Eats {
		w.U32(e.Eater)
		w.U32(e.Eaten)
	}
	for _, n := range m.Nodes {
		if n.ID == 0 {
			w.fail(ErrReservedID)
			return
		}
		w.U32(n.ID)
		w.I32(n.X)
		w.I32(n.Y)
		w.U16(n.Size)
		w.U8(n.Flags)
		if n.Flags&NodeColor != 0 {
			w.U8(n.R)
			w.U8(n.G)
			w.U8(n.B)
		}
		if n.Flags&NodeSkin != 0 {
			w.String(n.Skin)
		}
		if n.Flags&NodeName != 0 {
			w.String(n.Name)
		}
	}
	w.U32(0)
	w.Count16(len(m.Removals))
	for _, id := range m.Removals {
		w.U32(id)
	}
}

func decodeUpdateNodes(r *Reader) Message {
	var msg UpdateNodes
	n := r.Count(uint64(r.U16()), 8)
	for i := 0; i < n && r.Err() == nil; i++ {
		msg.Eats = append(msg.Eats, EatRecord{Eater: r.U32(), Eaten: r.U32()})
	}
	for r.Err() == nil {
		id := r.U32()
		if id == 0 {
			break
		}
		node := NodeRecord{ID: id, X: r.I32(), Y: r.I32(), Size: r.U16(), Flags: r.U8()}
		if node.Flags&NodeColor != 0 {
			node.R, node.G, node.B = r.U8(), r.U8(), r.U8()
		}
		if node.Flags&NodeSkin != 0 {
			node.Skin = r.String()
		}
		if node.Flags&NodeName != 0 {
			node.Name = r.String()
		}
		msg.Nodes = append(msg.Nodes, node)
	}
	n = r.Count(uint64(r.U16()), 4)
	for i := 0; i < n && r.Err() == nil; i++ {
		msg.Removals = append(msg.Removals, r.U32())
	}
	return msg
}

// UpdatePosition moves the client camera.
type UpdatePosition struct {
	X     float32
	Y     float32
	Scale float32
}

func (UpdatePosition) Opcode() uint8 { return OpUpdatePosition }
func (m UpdatePosition) encode(w *Writer) {
	w.F32(m.X)
	w.F32(m.Y)
	w.F32(m.Scale)
}

type ClearAll struct{}

func (ClearAll) Opcode() uint8  { return OpClearAll }
func (ClearAll) encode(*Writer) {}

type ClearOwned struct{}

func (ClearOwned) Opcode() uint8  { return OpClearOwned }
func (ClearOwned) encode(*Writer) {}

// AddNode tells the client it owns a cell.
type AddNode struct{ ID uint32 }

func (AddNode) Opcode() uint8      { return OpAddNode }
func (m AddNode) encode(w *Writer) { w.U32(m.ID) }

type LeaderboardText struct{ Lines []string }

func (LeaderboardText) Opcode() uint8 { return OpLeaderboardText }
func (m LeaderboardText) encode(w *Writer) {
	w.Count32(len(m.Lines))
	for _, line := range m.Lines {
		w.String(line)
	}
}

// RankedEntry is one leaderboard row; Highlight is the receiving player's
// own id marker, 0 for everyone else.
type RankedEntry struct {
	Highlight uint32
	Name      string
}

type LeaderboardRanked struct{ Entries []RankedEntry }

func (LeaderboardRanked) Opcode() uint8 { return OpLeaderboardRanked }
func (m LeaderboardRanked) encode(w *Writer) {
	w.Count32(len(m.Entries))
	for _, e := range m.Entries {
		w.U32(e.Highlight)
		w.String(e.Name)
	}
}

type LeaderboardPie struct{ Fractions []float32 }

func (LeaderboardPie) Opcode() uint8 { return OpLeaderboardPie }
func (m LeaderboardPie) encode(w *Writer) {
	w.Count32(len(m.Fractions))
	for _, f := range m.Fractions {
		w.F32(f)
	}
}

// SetBorder announces the arena bounds and mode.
type SetBorder struct {
	MinX       float64
	MinY       float64
	MaxX       float64
	MaxY       float64
	GameType   uint32
	ServerName string
}

func (SetBorder) Opcode() uint8 { return OpSetBorder }
func (m SetBorder) encode(w *Writer) {
	w.F64(m.MinX)
	w.F64(m.MinY)
	w.F64(m.MaxX)
	w.F64(m.MaxY)
	w.U32(m.GameType)
	w.String(m.ServerName)
}

// ServerInfo is the periodic status broadcast.
type ServerInfo struct {
	UptimeSeconds uint32
	Players       uint16
	Alive         uint16
	Spectators    uint16
	Tick          uint32
	UpdateMillis  float32
	Mode          string
}

func (ServerInfo) Opcode() uint8 { return OpServerInfo }
func (m ServerInfo) encode(w *Writer) {
	w.U32(m.UptimeSeconds)
	w.U16(m.Players)
	w.U16(m.Alive)
	w.U16(m.Spectators)
	w.U32(m.Tick)
	w.F32(m.UpdateMillis)
	w.String(m.Mode)
}

// ChatMessage relays a chat line with the sender's colour.
type ChatMessage struct {
	Flags uint8
	R     uint8
	G     uint8
	B     uint8
	Name  string
	Text  string
}

func (ChatMessage) Opcode() uint8 { return OpChatMessage }
func (m ChatMessage) encode(w *Writer) {
	w.U8(m.Flags)
	w.U8(m.R)
	w.U8(m.G)
	w.U8(m.B)
	w.String(m.Name)
	w.String(m.Text)
}
