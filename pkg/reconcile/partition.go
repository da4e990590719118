package reconcile

import "sort"

// Partition holds every event of one PairKey, sorted by (timestamp, event ID).
type Partition struct {
	Key    PairKey
	Events []Event
}

// OfType returns the partition's events whose type is one of types, in order.
func (p Partition) OfType(types ...EventType) []Event {
	var out []Event
	for _, e := range p.Events {
		for _, t := range types {
			if e.Type == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// PartitionEvents groups events by PairKey.
// Partitions are ordered by key and each partition's events are sorted, so the
// result does not depend on the arrival order of the input.
func PartitionEvents(events []Event) []Partition {
	groups := make(map[PairKey][]Event)
	for _, e := range events {
		k := e.Key()
		groups[k] = append(groups[k], e)
	}

	parts := make([]Partition, 0, len(groups))
	for k, evs := range groups {
		SortEvents(evs)
		parts = append(parts, Partition{Key: k, Events: evs})
	}
	sort.Slice(parts, func(i, j int) bool {
		return parts[i].Key.Less(parts[j].Key)
	})
	return parts
}
