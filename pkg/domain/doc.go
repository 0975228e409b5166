/*
Package domain contains the core types of formdraft.

It defines the closed, typed schema of a multi-step form, the draft values a
user has entered so far, and the validation outcome of a step. This package is
kept pure and free of I/O; persistence lives behind the ports package.

# Key Entities

  - Form, Step, Field, Rule: the declarative schema of a multi-step form.
  - Draft: the serializable subset of the current field values.
  - Snapshot: a draft together with the step it was left on.
  - FieldErrors: the first failing rule message for each invalid field.
  - LifecycleHooks: callbacks for observability (saves, step moves, submits).
*/
package domain
