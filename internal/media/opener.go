// Package media hands card links to external viewers. Rendering images or
// video inside the terminal is out of reach, so links open in whatever the
// platform considers the default handler.
package media

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/jmherbst/verifeed/internal/lazy"
)

type Opener struct {
	defaultCmd string
	imageCmd   string
	videoCmd   string
}

func NewOpener() *Opener {
	o := &Opener{defaultCmd: platformOpener()}

	// Dedicated viewers beat a browser tab when they are installed.
	switch runtime.GOOS {
	case "darwin":
		o.imageCmd = o.defaultCmd
		o.videoCmd = findCommand("mpv", "vlc")
	case "linux":
		o.imageCmd = findCommand("feh", "imv", "eog")
		o.videoCmd = findCommand("mpv", "vlc")
	}
	if o.imageCmd == "" {
		o.imageCmd = o.defaultCmd
	}
	if o.videoCmd == "" {
		o.videoCmd = o.defaultCmd
	}
	return o
}

// Open starts the handler for the URL detached; the TUI keeps running
// while the viewer owns its own window.
func (o *Opener) Open(url string, kind lazy.Kind) error {
	command := o.defaultCmd
	switch kind {
	case lazy.KindImage:
		command = o.imageCmd
	case lazy.KindVideo:
		command = o.videoCmd
	}
	if command == "" {
		return fmt.Errorf("no application found to open %s", url)
	}

	cmd := exec.Command(command, url)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", command, err)
	}

	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func platformOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return findCommand("rundll32")
	default:
		return findCommand("xdg-open", "sensible-browser")
	}
}

func findCommand(commands ...string) string {
	for _, cmd := range commands {
		if _, err := exec.LookPath(cmd); err == nil {
			return cmd
		}
	}
	return ""
}
