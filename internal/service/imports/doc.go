// Package imports implements the analytics import workflow: validating
// uploaded CSV exports, committing them through the merge-aware
// repositories, and aggregating multi-file batches.
//
// The service layer owns ordering and error-isolation policy: files in a
// batch run sequentially (later files may depend on merge state left by
// earlier ones), upserts within a file are applied in file order, and a
// failed record or file never aborts its siblings.
//
// Repository implementations live in repository/postgres/.
package imports
