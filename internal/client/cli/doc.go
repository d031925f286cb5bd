// Package cli provides the interactive pledge board command-line client.
//
// It wires configuration, the wire-protocol client and a small REPL. Users
// register and log in, vote on pledges, cancel votes, look up their own
// vote and the public statistics of a pledge, and (as admin) trigger an
// open-data refresh on the server.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
