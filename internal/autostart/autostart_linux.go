//go:build linux

package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const serviceName = "pushover-watchdog"

// unitTemplate is the systemd user unit written during installation.
// Placeholders {execPath} and {envFile} are replaced with actual paths.
const unitTemplate = `[Unit]
Description=Pushover host watchdog
After=network-online.target

[Service]
Type=simple
ExecStart={execPath}
EnvironmentFile={envFile}
Restart=always
RestartSec=10

[Install]
WantedBy=default.target
`

// envTemplate is the credentials file created on first install.
// The user fills in the Pushover keys; mode 0600 keeps them private.
const envTemplate = "PUSHOVER_USER_KEY=\nPUSHOVER_APP_TOKEN=\n"

// linuxManager implements Manager using a systemd user unit, so the
// watchdog runs without root and starts on login (or boot, with
// lingering enabled).
type linuxManager struct{}

// New returns a Manager that uses systemd user units.
func New() Manager {
	return &linuxManager{}
}

// ServiceName returns the systemd unit name.
func (l *linuxManager) ServiceName() string { return serviceName }

func (l *linuxManager) unitPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "systemd", "user", serviceName+".service")
}

func (l *linuxManager) envPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pushover-watchdog", "env")
}

// IsInstalled checks whether the user unit file exists.
func (l *linuxManager) IsInstalled() (bool, error) {
	_, err := os.Stat(l.unitPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking unit file: %w", err)
	}
	return true, nil
}

// Install writes the unit and credentials files, reloads the user
// daemon, and enables and starts the service.
func (l *linuxManager) Install(execPath string) error {
	unitPath := l.unitPath()
	envPath := l.envPath()

	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("creating systemd user directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(envPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Create the credentials file only if missing; never clobber keys
	// the user already entered.
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, []byte(envTemplate), 0600); err != nil {
			return fmt.Errorf("creating credentials file: %w", err)
		}
	}

	unit := strings.ReplaceAll(unitTemplate, "{execPath}", execPath)
	unit = strings.ReplaceAll(unit, "{envFile}", envPath)
	if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}

	commands := [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", "--now", serviceName},
	}
	for _, args := range commands {
		if err := exec.Command(args[0], args[1:]...).Run(); err != nil {
			return fmt.Errorf("running %s: %w", strings.Join(args, " "), err)
		}
	}

	fmt.Printf("Installed and started %s.service\n", serviceName)
	fmt.Printf("Edit credentials in: %s\n", envPath)
	fmt.Printf("Logs: journalctl --user -u %s.service -f\n", serviceName)
	fmt.Println("To keep it running while logged out: loginctl enable-linger $USER")
	return nil
}

// Uninstall stops, disables, and removes the user unit. The credentials
// file is left in place.
func (l *linuxManager) Uninstall() error {
	_ = exec.Command("systemctl", "--user", "disable", "--now", serviceName).Run()

	if err := os.Remove(l.unitPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}

	_ = exec.Command("systemctl", "--user", "daemon-reload").Run()
	return nil
}
