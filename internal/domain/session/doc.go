// Package session supervises extension development host processes.
//
// A session is one launched editor process plus its prompt artifacts and
// captured output. Launch returns immediately with an id; a separate,
// long-blocking AwaitCompletion call waits for the session to end. Three
// producers can end a session:
//
//   - an explicit StopByID / StopCurrent (graceful signal, forced kill after
//     the grace period)
//   - the process exiting on its own
//   - CleanupAll at shutdown (forced kill, no grace period)
//
// Components:
//   - Handle: one OS process, in-memory stdout/stderr capture, Terminate/Kill
//   - Registry: lock-protected id -> *Session map plus the "current" pointer
//   - Broker: single-shot result slot per session
//   - Supervisor: composes the three
//
// Exactly-once completion:
//
// Producers race through Registry.Claim, a compare-and-swap on the session
// state. Only the winner builds the CompletionResult; it then removes the
// session and publishes to the Broker inside one registry critical section,
// so no reader sees a removed session without a result or a published
// result for a still-registered session.
//
// Example Usage:
//
//	sup := session.NewSupervisor(session.WithLogger(logger))
//	sid, err := sup.Launch(ctx, "/ws/src", "Check the hover provider", "/ws/examples")
//	result, err := sup.AwaitCompletion(ctx, sid)
//
//	// or both at once, with no window for an early exit to go unseen:
//	sid, result, err := sup.Run(ctx, "/ws/src", prompt, "/ws/examples")
//
//	// elsewhere, e.g. from the stop tool:
//	result, ok := sup.StopByID(ctx, sid)
package session
