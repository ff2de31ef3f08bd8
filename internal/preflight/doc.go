// Package preflight provides readiness checks for the filesystem paths and
// external services the vault depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to start when a required
//     directory is not writable.
//   - The CLI "vault status" command renders every result for operators.
//
// Optional collaborators (notifications, scoring) are only checked when
// configured.
package preflight
