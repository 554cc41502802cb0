package bus

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	controls [][]byte
	closed   bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), data...)
	f.controls = append(f.controls, cp)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newTestClient(id string, conn Conn) *Client {
	return &Client{ID: id, conn: conn, send: make(chan []byte, 16)}
}

func TestGroupSendDeliversOnlyToMembers(t *testing.T) {
	h := NewHub()
	inGroup := newTestClient("a", &fakeConn{})
	outOfGroup := newTestClient("b", &fakeConn{})

	h.GroupAdd("room:1", inGroup)
	h.GroupAdd("room:2", outOfGroup)

	h.GroupSend("room:1", map[string]string{"type": "ping"})

	select {
	case <-inGroup.send:
	default:
		t.Error("expected the group member to receive the message")
	}
	select {
	case <-outOfGroup.send:
		t.Error("client outside the group should not receive the message")
	default:
	}
}

func TestGroupDiscardRemovesMembershipAndEmptiesGroup(t *testing.T) {
	h := NewHub()
	c := newTestClient("a", &fakeConn{})
	h.GroupAdd("room:1", c)

	if h.GroupSize("room:1") != 1 {
		t.Fatalf("GroupSize = %d, want 1", h.GroupSize("room:1"))
	}

	h.GroupDiscard("room:1", c)

	if h.GroupSize("room:1") != 0 {
		t.Errorf("GroupSize after discard = %d, want 0", h.GroupSize("room:1"))
	}
	if h.SendToChannel("a", "hello") {
		t.Error("SendToChannel should report false once the client is gone")
	}
}

func TestSendToChannelDeliversByConnID(t *testing.T) {
	h := NewHub()
	c := newTestClient("conn-1", &fakeConn{})
	h.GroupAdd("room:1", c)

	if !h.SendToChannel("conn-1", map[string]string{"type": "ping"}) {
		t.Fatal("expected SendToChannel to find the connection")
	}
	select {
	case <-c.send:
	default:
		t.Error("expected a message to be queued")
	}
}

func TestCloseGroupClosesAndRemovesEveryMember(t *testing.T) {
	h := NewHub()
	connA, connB := &fakeConn{}, &fakeConn{}
	a := newTestClient("a", connA)
	b := newTestClient("b", connB)
	h.GroupAdd("game:1", a)
	h.GroupAdd("game:1", b)

	h.CloseGroup("game:1", 1000, "game over")

	if h.GroupSize("game:1") != 0 {
		t.Errorf("GroupSize after CloseGroup = %d, want 0", h.GroupSize("game:1"))
	}
	if h.SendToChannel("a", "x") || h.SendToChannel("b", "x") {
		t.Error("CloseGroup should remove every member from the client map")
	}
	for _, conn := range []*fakeConn{connA, connB} {
		conn.mu.Lock()
		if len(conn.controls) != 1 {
			t.Errorf("expected one close control frame, got %d", len(conn.controls))
		}
		conn.mu.Unlock()
	}
}

func TestCloseChannelClosesOneConnectionAndScrubsGroups(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}
	c := newTestClient("conn-1", conn)
	h.GroupAdd("game:1", c)
	other := newTestClient("conn-2", &fakeConn{})
	h.GroupAdd("game:1", other)

	h.CloseChannel("conn-1", 4000, "opponent did not join in time")

	if h.SendToChannel("conn-1", "x") {
		t.Error("expected conn-1 to be removed from the client map")
	}
	if h.GroupSize("game:1") != 1 {
		t.Errorf("GroupSize after CloseChannel = %d, want 1 (other member untouched)", h.GroupSize("game:1"))
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.controls) != 1 {
		t.Errorf("expected one close control frame, got %d", len(conn.controls))
	}
}

func TestCloseWithCodeIsIdempotent(t *testing.T) {
	conn := &fakeConn{}
	c := newTestClient("a", conn)

	c.CloseWithCode(1000, "done")
	c.CloseWithCode(1000, "done again")

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.controls) != 1 {
		t.Errorf("expected exactly one close control frame across repeated calls, got %d", len(conn.controls))
	}
}

func TestWritePumpDrainsQueueAndSendsCloseFrame(t *testing.T) {
	conn := &fakeConn{}
	c := newTestClient("a", conn)

	c.Send(map[string]string{"type": "hello"})
	c.Close()
	c.WritePump()

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.writes) != 1 {
		t.Fatalf("expected exactly one written frame before the close, got %d", len(conn.writes))
	}
	var decoded map[string]string
	if err := json.Unmarshal(conn.writes[0], &decoded); err != nil {
		t.Fatalf("unexpected write payload: %v", err)
	}
	if decoded["type"] != "hello" {
		t.Errorf("decoded = %+v, want type=hello", decoded)
	}
	if !conn.closed {
		t.Error("expected WritePump to close the connection on exit")
	}
}
