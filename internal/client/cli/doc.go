// Package cli provides the interactive GophChat command-line client.
//
// It wires configuration, the local salt store, the gRPC API client and the
// encrypting chat session into a REPL. Typical flow: register or log in,
// list rooms, open one, then read and post messages. Everything typed into
// the REPL is encrypted by the session before it reaches the network.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See runREPL for the command set.
package cli
