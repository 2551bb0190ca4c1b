package base

// Assert panics with the given message when pred is false; reserved for
// invariants that indicate a programmer bug in this driver, never for user
// input validation (those are reported as errors through diag.Engine).
func Assert(pred bool, msg string, args ...interface{}) {
	if !pred {
		panic(MakeError(msg, args...))
	}
}
