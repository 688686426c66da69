// Package callsite captures the recording context's originating source
// file and classifies later call sites against it.
package callsite

import "runtime"

// Interactive is the sentinel origin for contexts with no resolvable
// originating script (REPL-style use); such contexts log every call.
const Interactive = "interactive"

// Policy is the logging filter decided at context start.
//
// Chosen policy: a call is logged when the context is interactive, or when
// the immediate caller's source file equals the origin file captured at
// context start. Calls issued from helper files or other packages are not
// logged; that keeps engine-internal churn out of the replay log.
type Policy struct {
	Origin string
}

// CapturePolicy records the source file of the caller skip+1 frames up as
// the context origin. skip=0 means the direct caller of CapturePolicy.
func CapturePolicy(skip int) Policy {
	file := CallerFile(skip + 1)
	if file == "" {
		return Policy{Origin: Interactive}
	}
	return Policy{Origin: file}
}

// InteractivePolicy returns the log-everything policy.
func InteractivePolicy() Policy {
	return Policy{Origin: Interactive}
}

// ShouldLog applies the policy to one call site.
func (p Policy) ShouldLog(callerFile string) bool {
	if p.Origin == Interactive {
		return true
	}
	return callerFile != "" && callerFile == p.Origin
}

// CallerFile returns the source file skip+1 frames above the caller, or
// "" when the frame cannot be resolved.
func CallerFile(skip int) string {
	_, file, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return file
}
