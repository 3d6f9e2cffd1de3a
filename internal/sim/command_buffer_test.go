package sim

import "testing"

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []Command{
		{ActorID: 1, Type: CommandMouse},
		{ActorID: 2, Type: CommandSplit},
		{ActorID: 3, Type: CommandEject},
	}
	for _, cmd := range cmds {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if buffer.Push(Command{ActorID: 99}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.ActorID != cmds[i].ActorID || cmd.Type != cmds[i].Type {
			t.Fatalf("expected drain order %v, got %v", cmds[i].ActorID, cmd.ActorID)
		}
	}
	for _, cmd := range []Command{{ActorID: 4}, {ActorID: 5}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 {
		t.Fatalf("expected 2 commands after wraparound, got %d", len(wrapped))
	}
	if wrapped[0].ActorID != 4 || wrapped[1].ActorID != 5 {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestCommandBufferOverflow(t *testing.T) {
	buffer := NewCommandBuffer(1, nil)
	if !buffer.Push(Command{ActorID: 1}) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(Command{ActorID: 2}) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	drained := buffer.Drain()
	if len(drained) != 1 || drained[0].ActorID != 1 {
		t.Fatalf("unexpected drained commands: %+v", drained)
	}
	if buffer.Drain() != nil {
		t.Fatalf("expected empty drain to return nil")
	}
}

func TestCommandBufferDrainIntoReusesSlice(t *testing.T) {
	buffer := NewCommandBuffer(4, nil)
	join := &JoinCommand{Remote: "127.0.0.1"}
	buffer.Push(Command{ActorID: 1, Type: CommandJoin, Join: join})
	scratch := make([]Command, 0, 8)
	out := buffer.DrainInto(scratch)
	if len(out) != 1 || out[0].Join != join {
		t.Fatalf("unexpected drain result: %+v", out)
	}
	if &out[:1][0] != &scratch[:1][0] {
		t.Fatalf("expected DrainInto to append into the provided slice")
	}
	if buffer.data[0].Join != nil {
		t.Fatalf("expected drained slot to be zeroed")
	}
}
