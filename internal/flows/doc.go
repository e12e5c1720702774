// Package flows contains the pure decision pipelines of the edge gate,
// expressed as Run functions over injected dependency structs.
//
// # Architecture boundaries
//
// Flows import value types (cookie.TokenPair, idp.Claims) but never the
// implementations behind them: every collaborator arrives as a closure or
// sentinel error in a Deps struct. This keeps each pipeline a deterministic
// function of its inputs, which is what makes the resolver's ordering
// guarantees (decode before verify, verify before refresh) directly testable
// without a network.
//
// # What this package must NOT do
//
//   - Perform I/O of its own.
//   - Hold state between calls; every Result is request-local.
//   - Import goGate or any sibling package outside internal/.
package flows
