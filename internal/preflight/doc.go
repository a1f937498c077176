// Package preflight provides readiness checks for the filesystem paths and
// push-notification server scribe depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs failures as warnings; jobs
//     still run, since a missing output directory is created per job.
//   - The CLI "scribe status" and "scribe config validate" commands display
//     the same results so problems surface before a job fails.
//
// Each check is gated by its config toggle -- unset features are skipped.
package preflight
