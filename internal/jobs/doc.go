// Package jobs persists the processing queue in SQLite and enforces the job
// lifecycle: pending -> in_progress -> done or error. Every transition is a
// guarded UPDATE whose WHERE clause names the expected current status, so
// concurrent workers and the stale-job reaper cannot move a job twice or
// resurrect a terminal one.
package jobs
