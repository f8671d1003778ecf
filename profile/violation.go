package profile

import (
	"fmt"
	"strings"

	"github.com/Swind/go-task-profiler/core"
)

// invariantViolation reports a programming defect. Strict builds fail fast;
// other builds log and let the caller clamp.
func invariantViolation(logger core.Logger, msg string, fields ...core.Field) {
	if strictInvariants {
		var b strings.Builder
		b.WriteString("profile: invariant violation: ")
		b.WriteString(msg)
		for _, f := range fields {
			fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
		}
		panic(b.String())
	}
	logger.Warn("invariant violation: "+msg, fields...)
}
