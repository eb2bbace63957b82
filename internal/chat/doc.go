// Package chat contains the chat application service and the per-connection
// dispatcher that routes inbound text between the persistence path and the
// stock bot broker.
package chat
