package capture

import (
	"strings"
	"sync"
)

// MaxRestarts bounds automatic recognizer restarts per capture session.
// Past this the session is declared failed and the operator has to
// reconnect deliberately.
const MaxRestarts = 5

// fatal recognizer failures: restarting cannot fix credentials or an
// unsupported language, so these end the session immediately.
var fatalMarkers = []string{
	"unauthenticated",
	"unauthorized",
	"permission denied",
	"forbidden",
	"api key",
	"unsupported language",
	"invalid language",
	"languagecode",
}

// FatalRecognizerError reports whether a speech provider error is
// non-recoverable. Anything else (network blips, stream resets, deadline
// exceeded) is worth a restart.
func FatalRecognizerError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range fatalMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// RestartGate tracks restart attempts for one capture session.
type RestartGate struct {
	mu    sync.Mutex
	count int
}

// Allow records one failure and reports whether a restart may proceed:
// false for fatal errors and once the restart budget is spent.
func (g *RestartGate) Allow(err error) bool {
	if FatalRecognizerError(err) {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	return g.count <= MaxRestarts
}

// Reset clears the counter after a healthy stretch of recognition.
func (g *RestartGate) Reset() {
	g.mu.Lock()
	g.count = 0
	g.mu.Unlock()
}

func (g *RestartGate) Restarts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}
