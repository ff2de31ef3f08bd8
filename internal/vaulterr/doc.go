// Package vaulterr defines the vault's error taxonomy.
//
// Sentinel markers (ErrValidation, ErrNotFound, ...) tag errors built with Wrap
// so callers can classify failures with errors.Is. Typed errors carry the
// payload a caller needs to explain the failure to a user, such as the
// candidate list of an ambiguous category lookup. Kind, HTTPStatus, and
// UserMessage translate any error into the forms the API and chat surfaces use.
package vaulterr
