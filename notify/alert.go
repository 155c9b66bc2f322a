package notify

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/arloliu/pulse/types"
)

const alertFormat = "ALERT: Node '%s' has failed. Immediate action required!"

// Alert is the payload sent by the reference sinks.
type Alert struct {
	// ID is unique per built alert.
	ID string `json:"id"`

	// Key is stable for one failure of one node, so receivers can drop
	// duplicates produced by retries.
	Key string `json:"key"`

	Node          string    `json:"node"`
	State         string    `json:"state"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	Retries       int       `json:"retries"`
	Message       string    `json:"text"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewAlert builds the alert for a failed node.
func NewAlert(node types.NodeSnapshot, now time.Time) Alert {
	return Alert{
		ID:            uuid.NewString(),
		Key:           DedupeKey(node),
		Node:          node.Name,
		State:         node.State.String(),
		LastHeartbeat: node.LastHeartbeat,
		Retries:       node.Retries,
		Message:       AlertMessage(node.Name),
		Timestamp:     now,
	}
}

// AlertMessage returns the human readable alert text for a node.
func AlertMessage(name string) string {
	return fmt.Sprintf(alertFormat, name)
}

// DedupeKey derives the duplicate-suppression key of a failure.
//
// The key depends on the node name and its last heartbeat, which are both
// fixed for the lifetime of one failure.
func DedupeKey(node types.NodeSnapshot) string {
	h := xxh3.HashString(node.Name + "|" + node.LastHeartbeat.UTC().Format(time.RFC3339Nano))
	return strconv.FormatUint(h, 16)
}
