package webdriver

import (
	"fmt"
	"maps"
	"strings"

	"github.com/uv1406/harness/packages/session"
)

var headlessChromium = []string{"--headless=new", "--disable-gpu", "--window-size=1920,1080"}

// Capabilities builds the alwaysMatch capabilities for a profile. Extra
// profile capabilities are merged last and win.
func Capabilities(p session.Profile) (map[string]any, error) {
	var caps map[string]any

	switch strings.ToLower(p.Name) {
	case "chrome":
		args := []string{"--start-maximized"}
		if p.Headless {
			args = append(args, headlessChromium...)
		}
		caps = map[string]any{
			"browserName":        "chrome",
			"goog:chromeOptions": map[string]any{"args": args},
		}
	case "firefox":
		var args []string
		if p.Headless {
			args = append(args, "--headless", "--width=1920", "--height=1080")
		}
		caps = map[string]any{
			"browserName":        "firefox",
			"moz:firefoxOptions": map[string]any{"args": args},
		}
	case "edge":
		var args []string
		if p.Headless {
			args = append(args, headlessChromium...)
		} else {
			args = append(args, "--start-maximized")
		}
		args = append(args, "--no-sandbox", "--disable-dev-shm-usage")
		caps = map[string]any{
			"browserName":    "MicrosoftEdge",
			"ms:edgeOptions": map[string]any{"args": args},
		}
	case "android":
		caps = map[string]any{
			"platformName":          "Android",
			"appium:automationName": "UiAutomator2",
		}
	case "ios":
		caps = map[string]any{
			"platformName":          "iOS",
			"appium:automationName": "XCUITest",
		}
	default:
		return nil, fmt.Errorf("%w: browser %q", session.ErrUnsupportedProfile, p.Name)
	}

	maps.Copy(caps, p.Capabilities)
	return caps, nil
}

// IsDevice reports whether the profile targets an Appium device.
func IsDevice(p session.Profile) bool {
	name := strings.ToLower(p.Name)
	return name == "android" || name == "ios"
}
