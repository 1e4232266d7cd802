// Package separator shells out to the stem-separation engine. Output files
// are verified on disk after every run because the engine's exit status alone
// does not prove the artifacts were written.
package separator
