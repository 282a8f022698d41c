// Package store defines the event persistence contract and the query
// service that answers trace questions on top of it.
//
// The storage engine itself is an external collaborator: implementations
// live in the elastic and memory subpackages, and everything above them
// talks only to the Store interface. The QueryService layers timeline
// reconstruction and a short-lived read cache over a Store.
package store
