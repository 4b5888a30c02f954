// package conditional
//
// tiny branching helpers
package conditional

// Ternary : returns a if cond is true otherwise b
func Ternary[T any](cond bool, a T, b T) T {
	if cond {
		return a
	}
	return b
}
