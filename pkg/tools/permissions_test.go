package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var destructiveCommands = []string{
	"rm -rf /",
	"sudo rm  -rf /home",
	"mkfs.ext4 /dev/sda1",
	"dd if=/dev/zero of=/dev/sda",
	":(){ :|:& };:",
	"echo junk > /dev/sda",
	"Format-Volume -DriveLetter C",
	"Remove-Item C:\\Users -Recurse -Force",
	"REMOVE-ITEM C:\\temp -recurse",
}

func TestDangerousCommandsBlockedInEveryMode(t *testing.T) {
	for _, mode := range []string{PermissionAsk, PermissionAllow, PermissionDeny} {
		perms := NewPermissionSystem(mode)
		for _, cmd := range destructiveCommands {
			assert.True(t, perms.IsDangerous(cmd), "mode=%s cmd=%q", mode, cmd)
			assert.False(t, perms.Allow(cmd), "mode=%s cmd=%q", mode, cmd)
		}
	}
}

func TestSafeCommandsPassPatternCheck(t *testing.T) {
	safe := []string{
		"ls -la",
		"git status",
		"rm file.txt",     // plain rm without -rf
		"echo dd ifs are", // dd without if=
		"cat /etc/hostname",
	}
	perms := NewPermissionSystem(PermissionAllow)
	for _, cmd := range safe {
		assert.False(t, perms.IsDangerous(cmd), "cmd=%q", cmd)
		assert.True(t, perms.Allow(cmd), "cmd=%q", cmd)
	}
}

func TestDenyModeBlocksEverything(t *testing.T) {
	perms := NewPermissionSystem(PermissionDeny)
	assert.False(t, perms.Allow("ls"))
	assert.False(t, perms.Allow("echo hello"))
}

func TestAskModeAllowsSafeCommands(t *testing.T) {
	// Without an interactive prompt, ask behaves like allow after the
	// pattern check.
	perms := NewPermissionSystem(PermissionAsk)
	assert.True(t, perms.Allow("ls"))
	assert.False(t, perms.Allow("rm -rf /tmp/x"))
}

func TestUnknownModeFallsBackToAsk(t *testing.T) {
	perms := NewPermissionSystem("yolo")
	assert.Equal(t, PermissionAsk, perms.Mode())

	perms = NewPermissionSystem("")
	assert.Equal(t, PermissionAsk, perms.Mode())
}
