/*
Package session serialises work on a form draft.

Manager resolves form schemas from a registry, drives a stepper.Controller per
schema and holds a reference-counted mutex per form ID so that edits,
navigation, submission and clearing of one draft never interleave inside a
process. With a ports.DistributedLocker the same guarantee extends across
replicas; without it concurrent writers in different processes are
last-write-wins.

Edits may be debounced through an autosave.Debouncer. Navigation, submission
and clearing discard the pending autosave of that form first.
*/
package session
