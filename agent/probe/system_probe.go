package probe

import (
	"os"
	"os/user"
	"strings"
)

// Session types reported by the agent
const (
	SessionRemoteDesktop = "remote_desktop"
	SessionConsole       = "console"
	SessionUnknown       = "unknown"
)

// SystemProbe probes host facts
type SystemProbe struct {
	getenv      func(string) string
	hostname    func() (string, error)
	currentUser func() (*user.User, error)
}

// NewSystemProbe creates a new system probe
func NewSystemProbe() *SystemProbe {
	return &SystemProbe{
		getenv:      os.Getenv,
		hostname:    os.Hostname,
		currentUser: user.Current,
	}
}

// Hostname returns the machine name, or "" when it cannot be determined
func (p *SystemProbe) Hostname() string {
	name, err := p.hostname()
	if err != nil {
		return ""
	}
	return name
}

// CurrentUser returns the login name of the user running the agent
func (p *SystemProbe) CurrentUser() *string {
	if name := p.getenv("USER"); name != "" {
		return &name
	}
	if name := p.getenv("USERNAME"); name != "" {
		return &name
	}
	u, err := p.currentUser()
	if err != nil || u.Username == "" {
		return nil
	}
	name := u.Username
	return &name
}

// SessionType classifies the Windows session the agent runs in
func (p *SystemProbe) SessionType() string {
	session := strings.ToLower(p.getenv("SESSIONNAME"))
	switch {
	case strings.Contains(session, "rdp"):
		return SessionRemoteDesktop
	case strings.Contains(session, "console"):
		return SessionConsole
	default:
		return SessionUnknown
	}
}
