// Package autostart installs the watchdog as a background service that
// survives logout and reboot: a systemd user unit on Linux, a LaunchAgent
// on macOS, and a Windows service via the Service Control Manager.
package autostart

// Manager provides platform-specific service installation.
type Manager interface {
	IsInstalled() (bool, error)
	Install(execPath string) error
	Uninstall() error
	ServiceName() string
}
