package svgpng

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
)

// resolveBrowser downloads a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows).
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("downloading browser: %w", err)
	}
	return path, nil
}

// lookupBrowser returns the path of a locally installed Chrome or
// Chromium, or "" when none is found.
func lookupBrowser() string {
	path, ok := launcher.LookPath()
	if !ok {
		return ""
	}
	return path
}

// browserPath picks the executable for a launch: the configured path,
// then a downloaded one when allowed, then whatever the engine finds.
func browserPath(opts LaunchOptions) (string, error) {
	if opts.ChromePath != "" {
		return opts.ChromePath, nil
	}
	if opts.AutoDownload {
		return resolveBrowser()
	}
	return "", nil
}
