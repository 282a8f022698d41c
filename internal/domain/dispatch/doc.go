// Package dispatch moves events from producers to the hub transport.
//
// The Dispatcher decouples latency-sensitive producers from the network: a
// bounded queue absorbs bursts, a single delivery loop serializes sends to
// preserve FIFO order, and a capped, jittered backoff survives transient
// disconnects. When the queue is full the newest record is dropped and
// counted rather than blocking the producer or displacing accepted records.
// Delivery to the transport is at-least-once: the in-flight record is
// retried after a reconnect, so the remote side may see a duplicate when a
// send half-completed before the failure was detected.
package dispatch
