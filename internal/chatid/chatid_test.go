package chatid

import (
	"errors"
	"testing"

	"github.com/voyora/messaging-service/internal/apperr"
)

func TestBuildCommutative(t *testing.T) {
	ab, err := Build("alice", "bob")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ba, err := Build("bob", "alice")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ab != ba {
		t.Fatalf("expected commutative ids, got %q and %q", ab, ba)
	}
	if ab != "alice_bob" {
		t.Fatalf("expected alice_bob, got %q", ab)
	}
}

func TestBuildDistinctPairs(t *testing.T) {
	ab, _ := Build("alice", "bob")
	ac, _ := Build("alice", "carol")
	if ab == ac {
		t.Fatalf("different pairs must not collide: %q", ab)
	}
}

func TestBuildRejectsInvalid(t *testing.T) {
	cases := [][2]string{
		{"", "bob"},
		{"alice", ""},
		{"alice", "alice"},
		{"ali_ce", "bob"},
	}
	for _, c := range cases {
		if _, err := Build(c[0], c[1]); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("Build(%q, %q): expected ErrInvalidArgument, got %v", c[0], c[1], err)
		}
	}
}

func TestOtherParticipant(t *testing.T) {
	id, _ := Build("alice", "bob")

	other, err := OtherParticipant(id, "alice")
	if err != nil {
		t.Fatalf("OtherParticipant: %v", err)
	}
	if other != "bob" {
		t.Fatalf("expected bob, got %q", other)
	}

	other, err = OtherParticipant(id, "bob")
	if err != nil {
		t.Fatalf("OtherParticipant: %v", err)
	}
	if other != "alice" {
		t.Fatalf("expected alice, got %q", other)
	}
}

func TestOtherParticipantMalformed(t *testing.T) {
	if _, err := OtherParticipant("alice_bob", "carol"); !errors.Is(err, apperr.ErrMalformedID) {
		t.Fatalf("non-member: expected ErrMalformedID, got %v", err)
	}
	if _, err := OtherParticipant("alicebob", "alice"); !errors.Is(err, apperr.ErrMalformedID) {
		t.Fatalf("unsplittable id: expected ErrMalformedID, got %v", err)
	}
	if _, err := OtherParticipant("a_b_c", "a"); !errors.Is(err, apperr.ErrMalformedID) {
		t.Fatalf("three parts: expected ErrMalformedID, got %v", err)
	}
}
