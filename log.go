package ndlz2d

import (
	"io"

	"github.com/sirupsen/logrus"
)

// pkgLogger is the package-level logger for the codec's diagnostic traces:
// Compress and Decompress each log one Trace-level entry per completed
// block. Rejected preconditions, the incompressible early-giveup and the
// match class chosen per cell are not logged. It defaults to discarding
// everything, so the library stays silent unless a caller opts in with
// SetLogger.
var pkgLogger logrus.FieldLogger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// SetLogger replaces the package-level logger. Pass nil to restore the
// default discarding logger.
func SetLogger(l logrus.FieldLogger) {
	if l == nil {
		pkgLogger = newDefaultLogger()
		return
	}
	pkgLogger = l
}
