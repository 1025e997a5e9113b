// Package server implements the transactions HTTP API and its record stores.
//
// Owns:
//   - HTTP routing, handlers, and request/response contracts
//   - Basic-auth gating of /transactions
//   - Repository implementations (JSON file, SQLite, memory)
//
// Invariants:
//   - Every response body goes through writeJSON (the Preflight, Favicon and
//     /metrics handlers write none of their own JSON)
//   - Writers serialize on the store's mutex for the whole load-mutate-save
//   - Ids are assigned by the store as max+1 and never change afterwards
package server
