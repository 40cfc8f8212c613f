package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// BrowserEnv names a browser command that takes precedence over the platform default.
const BrowserEnv = "BROWSER"

// OpenBrowser opens url in the browser named by $BROWSER, or the platform's default handler.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(runtime.GOOS, os.Getenv(BrowserEnv), url)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	return nil
}

func browserCommand(goos, browser, url string) (*exec.Cmd, error) {
	if browser != "" {
		return exec.Command(browser, url), nil
	}

	switch goos {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("%w: unsupported platform %s", ErrServiceUnavailable, goos)
	}
}
