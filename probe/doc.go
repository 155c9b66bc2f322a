// Package probe connects the detector to heartbeats published over NATS
// JetStream KV.
//
// Agents run a Publisher that writes "{prefix}.{node}" → RFC3339Nano timestamp
// at a fixed interval. The detector side uses a KVProber, which implements
// pulse.Prober: during each refresh phase only nodes with a fresh key are
// refreshed, so nodes whose agents stopped publishing time out.
package probe
