package service

import (
	"fmt"
	"sort"

	"github.com/voyora/messaging-service/internal/models"
)

// Aggregate folds raw notification records sharing (type, target) into
// one display unit each: count of records, distinct actors most recent
// first, read only when every record is read, timestamp of the latest
// event. Groups come back ordered by that timestamp, newest first.
func Aggregate(raw []*models.Notification) []*models.AggregatedNotification {
	sorted := make([]*models.Notification, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	type key struct{ typ, target string }
	index := make(map[key]*models.AggregatedNotification)
	var order []*models.AggregatedNotification

	for _, n := range sorted {
		k := key{n.Type, n.TargetID}
		agg, ok := index[k]
		if !ok {
			agg = &models.AggregatedNotification{
				Type:     n.Type,
				TargetID: n.TargetID,
				Read:     true,
			}
			index[k] = agg
			order = append(order, agg)
		}
		agg.Count++
		agg.Read = agg.Read && n.Read
		if n.CreatedAt.After(agg.Timestamp) {
			agg.Timestamp = n.CreatedAt
		}
		if !containsActor(agg.Actors, n.ActorID) {
			agg.Actors = append(agg.Actors, n.ActorID)
		}
		if agg.ActorName == "" {
			agg.ActorName = n.ActorName
		}
	}
	return order
}

func containsActor(actors []string, id string) bool {
	for _, a := range actors {
		if a == id {
			return true
		}
	}
	return false
}

// RenderText is the display contract the aggregator supplies to its
// caller: a pure function of (type, count, actor name).
func RenderText(typ string, count int, actorName string) string {
	var verb string
	switch typ {
	case "like":
		verb = "liked your post"
	case "comment":
		verb = "commented on your post"
	case "follow":
		verb = "started following you"
	default:
		verb = "sent you a notification"
	}
	if count <= 1 {
		return fmt.Sprintf("%s %s", actorName, verb)
	}
	return fmt.Sprintf("%s and %d others %s", actorName, count-1, verb)
}
