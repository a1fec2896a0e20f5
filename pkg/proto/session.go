package proto

import (
	"strings"
	"sync"
	"time"
)

// Session is the opaque tag AUTH returns, authenticating subsequent
// commands, per spec §3's Session entity: "session tag, established_at."
// At most one Session exists per Client at a time.
type Session struct {
	Tag           string
	EstablishedAt time.Time
}

// sessionHolder is the Client's exclusive owner of the current
// Session, read-mostly and serialised on writes per spec §5.
type sessionHolder struct {
	mu sync.RWMutex
	s  *Session
}

func (h *sessionHolder) Get() *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.s
}

func (h *sessionHolder) Set(tag string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.s = &Session{Tag: tag, EstablishedAt: time.Now()}
}

func (h *sessionHolder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.s = nil
}

// extractSessionTag implements spec §4.8's AUTH session-tag rule: when
// the message carries the usual "<tag> LOGIN ACCEPTED" framing, the
// tag is its first whitespace-separated token. Otherwise the message
// doesn't echo a tag at all, so the tag is read from the first field
// of the response's data line instead. NAT variants may insert an
// "ip:port" token between the tag and "LOGIN ACCEPTED"; it is ignored
// either way since only the first token/field is read.
func extractSessionTag(message string, lines [][]string) string {
	message = strings.TrimSpace(message)
	if message != "" && hasLoginAcceptedFraming(message) {
		if sp := strings.IndexAny(message, " \t"); sp >= 0 {
			return message[:sp]
		}
		return message
	}
	if len(lines) > 0 && len(lines[0]) > 0 {
		return lines[0][0]
	}
	return message
}

// hasLoginAcceptedFraming reports whether message looks like the
// server's usual acceptance text ("<tag> LOGIN ACCEPTED"), in which
// case the tag is embedded as its leading token.
func hasLoginAcceptedFraming(message string) bool {
	return strings.Contains(message, "LOGIN") || strings.Contains(message, "ACCEPTED")
}
