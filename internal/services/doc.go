// Package services defines shared utilities consumed by the job runners and
// external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, kinds, and stage names for logging.
//   - Structured error markers plus the Wrap helper that tag failures with the
//     taxonomy the runners convert into a job's terminal error message.
//
// Use these helpers when wiring new runner logic so operational behaviour
// (error handling, observability, retries) stays uniform across job kinds.
package services
