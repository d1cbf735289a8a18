//go:build debug

package calc

import "fmt"

const verboseDebug = true

func debugPrintf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}
