package models

import (
	"reflect"
	"testing"
)

func TestNextUnreadCounts(t *testing.T) {
	members := []string{"A", "B", "C"}

	next := NextUnreadCounts(members, map[string]int{}, "A")
	if !reflect.DeepEqual(next, map[string]int{"B": 1, "C": 1}) {
		t.Fatalf("first message: got %v", next)
	}

	next = NextUnreadCounts(members, next, "B")
	if !reflect.DeepEqual(next, map[string]int{"A": 1, "B": 1, "C": 2}) {
		t.Fatalf("second message: got %v", next)
	}

	// the sender's accumulated count survives their own send
	next = NextUnreadCounts(members, next, "A")
	if next["A"] != 1 {
		t.Fatalf("sender count must carry over, got %v", next)
	}
	if next["B"] != 2 || next["C"] != 3 {
		t.Fatalf("other counts must increment, got %v", next)
	}
}

func TestNextUnreadCountsDropsDepartedMembers(t *testing.T) {
	next := NextUnreadCounts([]string{"A", "B"}, map[string]int{"B": 4, "ghost": 2}, "A")
	if _, ok := next["ghost"]; ok {
		t.Fatalf("departed member kept a counter: %v", next)
	}
	if next["B"] != 5 {
		t.Fatalf("expected B:5, got %v", next)
	}
}

func TestUniqueMembers(t *testing.T) {
	got := UniqueMembers("alice", []string{"bob", "alice", "", "carol", "bob"})
	want := []string{"alice", "bob", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UniqueMembers = %v, want %v", got, want)
	}
}

func TestGroupSoleAdmin(t *testing.T) {
	g := &Group{Admins: []string{"alice"}}
	if !g.SoleAdmin("alice") {
		t.Fatal("alice is the sole admin")
	}
	if g.SoleAdmin("bob") {
		t.Fatal("bob is not an admin at all")
	}
	g.Admins = []string{"alice", "bob"}
	if g.SoleAdmin("alice") {
		t.Fatal("two admins, removal of either is fine")
	}
}

func TestMessageNormalizeSeedsSeenBy(t *testing.T) {
	m := &Message{SenderID: "alice"}
	m.Normalize()
	if len(m.SeenBy) != 1 || m.SeenBy[0] != "alice" {
		t.Fatalf("seen_by must contain the sender: %v", m.SeenBy)
	}
	// already present: no duplicate
	m.Normalize()
	if len(m.SeenBy) != 1 {
		t.Fatalf("normalize must be idempotent: %v", m.SeenBy)
	}
}

func TestConversationNormalizeSortsMembers(t *testing.T) {
	c := &Conversation{Members: []string{"bob", "alice"}}
	c.Normalize()
	if c.Members[0] != "alice" || c.Members[1] != "bob" {
		t.Fatalf("members must be sorted: %v", c.Members)
	}
}
