// Package validation evaluates the declarative rules of a form schema.
//
// Validation is synchronous and pure: the same fields and values always
// produce the same FieldErrors. Each field reports only the message of its
// first failing rule, checked in declaration order.
package validation
