package calc

// calcLogVerbose logs a diagnostic line when the engine is built with the
// "debug" tag. It never fires in a release build. This is the calc-package
// equivalent of the teacher's simLogVerbose (internal/engine/verbose_logging.go).
func calcLogVerbose(format string, args ...interface{}) {
	if verboseDebug {
		debugPrintf(format+"\n", args...)
	}
}
