package logger

import (
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// wrapperFrames are skipped when resolving the call site of a log entry.
var wrapperFrames = []string{
	"sirupsen/logrus",
	"sleepcompare/logger.(*Entry)",
	"sleepcompare/logger.(*Log)",
	"sleepcompare/logger.LogPerformanceEntry",
	"sleepcompare/logger.LogDataFlowEntry",
}

// callerHook rewrites entry.Caller so that file:line points at the code that
// logged, not at the Entry/Log wrappers in this package.
type callerHook struct{}

func (h *callerHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *callerHook) Fire(entry *logrus.Entry) error {
	pcs := make([]uintptr, 16)
	// Skip runtime.Callers, Fire and the logrus hook dispatch.
	n := runtime.Callers(4, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !isWrapperFrame(frame.Function) {
			entry.Caller = &frame
			return nil
		}
		if !more {
			return nil
		}
	}
}

func isWrapperFrame(fn string) bool {
	for _, prefix := range wrapperFrames {
		if strings.Contains(fn, prefix) {
			return true
		}
	}
	return false
}
