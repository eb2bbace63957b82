// Package broker implements the in-process message broker between the chat
// transport and the stock bot worker.
//
// It has two independent halves: an unbounded multi-producer FIFO of stock
// requests drained by a single worker, and a per-room registry of response
// handlers that fans each worker response out to whoever is subscribed to the
// room at publish time. The two halves never share a lock.
package broker
