package service

import (
	"testing"
	"time"

	"github.com/voyora/messaging-service/internal/models"
)

func notif(typ, target, actor string, read bool, at time.Time) *models.Notification {
	return &models.Notification{
		UserID:    "me",
		Type:      typ,
		TargetID:  target,
		ActorID:   actor,
		ActorName: actor,
		Read:      read,
		CreatedAt: at,
	}
}

func TestAggregateThreeLikes(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	raw := []*models.Notification{
		notif("like", "post1", "bob", true, base),
		notif("like", "post1", "carol", true, base.Add(time.Minute)),
		notif("like", "post1", "dave", false, base.Add(2*time.Minute)),
	}

	aggs := Aggregate(raw)
	if len(aggs) != 1 {
		t.Fatalf("expected one group, got %d", len(aggs))
	}
	a := aggs[0]
	if a.Count != 3 {
		t.Fatalf("count: expected 3, got %d", a.Count)
	}
	if a.Read {
		t.Fatal("one unread record must make the group unread")
	}
	if len(a.Actors) != 3 {
		t.Fatalf("actors: expected 3, got %v", a.Actors)
	}
	if a.Actors[0] != "dave" {
		t.Fatalf("actors must be most-recent-first, got %v", a.Actors)
	}
	if !a.Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("timestamp must be the latest event time, got %v", a.Timestamp)
	}
	if a.ActorName != "dave" {
		t.Fatalf("actor name must come from the newest record, got %q", a.ActorName)
	}
}

func TestAggregateSeparatesByTypeAndTarget(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	raw := []*models.Notification{
		notif("like", "post1", "bob", true, base),
		notif("like", "post2", "bob", true, base.Add(time.Minute)),
		notif("comment", "post1", "bob", true, base.Add(2*time.Minute)),
	}

	aggs := Aggregate(raw)
	if len(aggs) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(aggs))
	}
	// newest group first
	if aggs[0].Type != "comment" || aggs[1].TargetID != "post2" {
		t.Fatalf("groups out of order: %+v", aggs)
	}
}

func TestAggregateDistinctActors(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	raw := []*models.Notification{
		notif("like", "post1", "bob", true, base),
		notif("like", "post1", "bob", true, base.Add(time.Minute)),
	}

	aggs := Aggregate(raw)
	if aggs[0].Count != 2 {
		t.Fatalf("count: expected 2, got %d", aggs[0].Count)
	}
	if len(aggs[0].Actors) != 1 {
		t.Fatalf("repeat actor must appear once: %v", aggs[0].Actors)
	}
}

func TestAggregateAllRead(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	raw := []*models.Notification{
		notif("follow", "me", "bob", true, base),
		notif("follow", "me", "carol", true, base.Add(time.Minute)),
	}
	aggs := Aggregate(raw)
	if !aggs[0].Read {
		t.Fatal("group with all records read must be read")
	}
}

func TestAggregateEmpty(t *testing.T) {
	if got := Aggregate(nil); len(got) != 0 {
		t.Fatalf("expected no groups, got %v", got)
	}
}

func TestRenderText(t *testing.T) {
	cases := []struct {
		typ   string
		count int
		actor string
		want  string
	}{
		{"like", 1, "bob", "bob liked your post"},
		{"like", 3, "bob", "bob and 2 others liked your post"},
		{"comment", 1, "carol", "carol commented on your post"},
		{"follow", 2, "dave", "dave and 1 others started following you"},
	}
	for _, c := range cases {
		if got := RenderText(c.typ, c.count, c.actor); got != c.want {
			t.Fatalf("RenderText(%q,%d,%q) = %q, want %q", c.typ, c.count, c.actor, got, c.want)
		}
	}
}
