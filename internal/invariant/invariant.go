// Package invariant provides debug-only structural-invariant checks.
//
// Precondition violations (bad arguments from a caller) are always
// checked and returned as recoverable errors by the package that owns
// them. Deep invariants about a data structure's own internal
// consistency — the kind that can only be violated by a bug in this
// repository, not by caller input — are checked only when built with
// the c40kldebug tag, mirroring the original engine's split between
// C40KL_ASSERT_PRECONDITION (always on) and C40KL_ASSERT_INVARIANT
// (debug builds only).
package invariant

// Check panics with msg if ok is false. In non-debug builds this is a
// no-op; see invariant_debug.go / invariant_release.go.
func Check(ok bool, msg string) {
	check(ok, msg)
}
