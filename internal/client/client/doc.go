// Package client talks the pledge board wire protocol to the server.
//
// # Overview
//
// Client is the transport-agnostic contract used by the CLI; TCPClient is
// the implementation over one TCP connection carrying fixed-size envelopes.
// A TCPClient remembers the user id and session token returned by Login
// and attaches them to every later request.
//
// # Error Handling
//
// Dial and I/O failures are reported as ErrUnavailable. A non-200 response
// becomes a *StatusError; 401 responses also match ErrUnauthorized with
// errors.Is.
//
// # Concurrency & Contexts
//
// Requests on one TCPClient are serialized, since the protocol has no
// request ids. Every call honors the context deadline; Statistics
// additionally applies its own bounded wait.
package client
