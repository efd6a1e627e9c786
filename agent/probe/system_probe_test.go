package probe

import (
	"context"
	"errors"
	"os/user"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSystemProbe(env map[string]string) *SystemProbe {
	return &SystemProbe{
		getenv:      func(k string) string { return env[k] },
		hostname:    func() (string, error) { return "LAB-PC-3", nil },
		currentUser: func() (*user.User, error) { return &user.User{Username: "fallback"}, nil },
	}
}

func TestSessionType(t *testing.T) {
	assert.Equal(t, SessionRemoteDesktop, fakeSystemProbe(map[string]string{"SESSIONNAME": "RDP-Tcp#12"}).SessionType())
	assert.Equal(t, SessionConsole, fakeSystemProbe(map[string]string{"SESSIONNAME": "Console"}).SessionType())
	assert.Equal(t, SessionUnknown, fakeSystemProbe(nil).SessionType())
}

func TestCurrentUser(t *testing.T) {
	assert.Equal(t, "bob", *fakeSystemProbe(map[string]string{"USER": "bob"}).CurrentUser())
	assert.Equal(t, "carol", *fakeSystemProbe(map[string]string{"USERNAME": "carol"}).CurrentUser())
	assert.Equal(t, "fallback", *fakeSystemProbe(nil).CurrentUser())

	p := fakeSystemProbe(nil)
	p.currentUser = func() (*user.User, error) { return nil, errors.New("no user") }
	assert.Nil(t, p.CurrentUser())
}

func TestCollectorBuildsReport(t *testing.T) {
	gpu := NewGPUProbe(time.Second)
	gpu.lookPath = func(string) (string, error) { return "", errors.New("missing") }

	c := NewCollector("client-9", fakeSystemProbe(map[string]string{"USER": "dave", "SESSIONNAME": "Console"}), gpu)
	c.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.FixedZone("JST", 9*3600)) }

	report := c.Collect(context.Background())
	require.NotNil(t, report)
	assert.Equal(t, "client-9", report.ClientID)
	assert.Equal(t, "LAB-PC-3", report.PCName)
	assert.Equal(t, "online", report.Status)
	assert.Equal(t, "dave", *report.CurrentUser)
	assert.Equal(t, SessionConsole, *report.SessionType)
	assert.Nil(t, report.GPUName)
	assert.Nil(t, report.GPUUsagePercent)
	assert.Nil(t, report.GPUMemoryUsedMB)
	assert.Equal(t, "2026-10-18T23:00:00Z", report.Timestamp)
}
