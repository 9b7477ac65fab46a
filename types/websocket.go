package types

import "time"

// Snapshot is the ordered view of every tracked item at one point in time
type Snapshot struct {
	Version   uint64    `json:"version"`
	Items     []Item    `json:"items"`
	LastError string    `json:"lastError,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Find returns the item with the given id from the snapshot
func (s Snapshot) Find(id string) (Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// SnapshotMessage is the WebSocket envelope sent to browsers
type SnapshotMessage struct {
	Type     string   `json:"type"` // "snapshot"
	Snapshot Snapshot `json:"snapshot"`
}
