// Package middleware exposes HTTP adapters for cookie-based credential
// enforcement built on top of goGate.Gate resolution.
//
// # Components
//
//   - [Gate] — per-request resolution with decision-state dispatch.
//   - [RequireValid] — Gate preconfigured to reject non-valid decisions.
//   - [LoginHandler] / [LogoutHandler] — session establishment and teardown.
//   - [Register] — mounts both endpoints at the configured paths.
//
// Gate reads the session cookie, calls Gate.Resolve, attaches any cookie
// rewrite to the response, and injects the valid decision into the request
// context where [DecisionFromContext] retrieves it.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Gate calls. It does NOT
// implement credential logic itself — all decisions are delegated to
// Gate.Resolve and Gate.Login.
//
// # What this package must NOT do
//
//   - Decode cookies or parse tokens directly (delegates to the Gate).
//   - Talk to Redis or the identity provider (the Gate handles I/O).
//   - Make authorization decisions beyond dispatching on the decision state.
package middleware
