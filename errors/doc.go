// Package errors provides classified error handling for FeedPulse.
//
// Every failure in the engine falls into one of three classes:
//
//   - Transient: network-layer failures that the connection manager
//     retries with exponential backoff (connection lost, timeout, host
//     offline).
//   - Invalid: expected noise from a best-effort public feed (malformed
//     payloads, schema violations, duplicate events). These are counted
//     in metrics and dropped; they never interrupt ingestion.
//   - Fatal: construction-time misconfiguration. Fatal errors are only
//     returned from constructors, never from stream callbacks.
//
// # Usage
//
// Wrap errors at the point of failure with component and operation
// context:
//
//	if err := json.Unmarshal(data, &event); err != nil {
//		return errors.WrapInvalid(err, "feed", "ingest", "parse payload")
//	}
//
// Callers branch on classification, not concrete types:
//
//	if errors.IsTransient(err) {
//		f.scheduleReconnect()
//	}
//
// The engine's contract is that nothing surfaces a fatal error after
// startup: every runtime failure degrades to an observable status or
// diagnostic instead.
package errors
