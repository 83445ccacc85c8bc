//go:build darwin

package autostart

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const serviceLabel = "com.pushwatch.watchdog"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.pushwatch.watchdog</string>
    <key>ProgramArguments</key>
    <array>
        <string>{execPath}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{dataDir}/watchdog.stdout.log</string>
    <key>StandardErrorPath</key>
    <string>{dataDir}/watchdog.stderr.log</string>
</dict>
</plist>
`

// darwinManager implements Manager using a per-user LaunchAgent.
type darwinManager struct {
	plistPath string
}

// New returns a Manager that uses launchd LaunchAgents.
func New() Manager {
	home, _ := os.UserHomeDir()
	return &darwinManager{
		plistPath: filepath.Join(home, "Library", "LaunchAgents", serviceLabel+".plist"),
	}
}

func (d *darwinManager) ServiceName() string { return serviceLabel }

func (d *darwinManager) IsInstalled() (bool, error) {
	_, err := os.Stat(d.plistPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking plist file: %w", err)
	}
	return true, nil
}

// Install writes the LaunchAgent plist and loads it.
func (d *darwinManager) Install(execPath string) error {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".config", "pushover-watchdog")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.plistPath), 0755); err != nil {
		return fmt.Errorf("creating LaunchAgents directory: %w", err)
	}

	plist := strings.ReplaceAll(plistTemplate, "{execPath}", execPath)
	plist = strings.ReplaceAll(plist, "{dataDir}", dataDir)
	if err := os.WriteFile(d.plistPath, []byte(plist), 0644); err != nil {
		return fmt.Errorf("creating plist: %w", err)
	}
	if err := exec.Command("launchctl", "load", "-w", d.plistPath).Run(); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}

	fmt.Printf("Installed and started %s\n", serviceLabel)
	fmt.Printf("Put credentials in: %s\n", filepath.Join(dataDir, "config.yaml"))
	return nil
}

// Uninstall unloads and removes the LaunchAgent plist.
func (d *darwinManager) Uninstall() error {
	_ = exec.Command("launchctl", "unload", d.plistPath).Run()
	if err := os.Remove(d.plistPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing plist: %w", err)
	}
	return nil
}
