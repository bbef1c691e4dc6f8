//go:build c40kldebug

package invariant

func check(ok bool, msg string) {
	if !ok {
		panic("invariant violated: " + msg)
	}
}
