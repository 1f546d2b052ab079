// Package service is the bookmark façade consumed by the reader UI.
//
// It is a thin orchestration layer over the store and query packages.
// Lookups report "nothing found" as (zero, false, nil), never as an error.
// Persist returns failures to the caller in an Outcome, while Remove is
// best-effort: a failed delete is reported through the logger and the
// optional error handler, then the call returns normally.
//
// Duplicate positions are a legal state (positions are not unique). When a
// position lookup sees more than one match it returns the first in natural
// order and emits a debug-level diagnostic.
package service
