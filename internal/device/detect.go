// Package device classifies the client platform and decides which push
// back-end a device should subscribe to. The decision is made client-side
// and declared at subscribe time; the server trusts the declaration.
package device

import "strings"

type OSFamily string

const (
	OSiOS     OSFamily = "ios"
	OSAndroid OSFamily = "android"
	OSMac     OSFamily = "macos"
	OSWindows OSFamily = "windows"
	OSLinux   OSFamily = "linux"
	OSOther   OSFamily = "other"
)

type BrowserFamily string

const (
	BrowserSafari  BrowserFamily = "safari"
	BrowserChrome  BrowserFamily = "chrome"
	BrowserFirefox BrowserFamily = "firefox"
	BrowserEdge    BrowserFamily = "edge"
	BrowserOther   BrowserFamily = "other"
)

// Probes carries the feature checks only the running client can make.
type Probes struct {
	ServiceWorker bool
	PushManager   bool
	Notification  bool
	// Standalone is true when the app runs installed (display-mode:
	// standalone / navigator.standalone).
	Standalone bool
}

type Capability struct {
	OSFamily              OSFamily
	BrowserFamily         BrowserFamily
	IsInstalledStandalone bool
	NativePushUsable      bool
}

// Detect is a pure function of the user agent and feature probes.
func Detect(userAgent string, probes Probes) Capability {
	ua := strings.ToLower(userAgent)

	c := Capability{
		OSFamily:              detectOS(ua),
		BrowserFamily:         detectBrowser(ua),
		IsInstalledStandalone: probes.Standalone,
	}
	c.NativePushUsable = probes.ServiceWorker && probes.PushManager && probes.Notification
	return c
}

func detectOS(ua string) OSFamily {
	switch {
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return OSiOS
	case strings.Contains(ua, "android"):
		return OSAndroid
	case strings.Contains(ua, "mac os x"), strings.Contains(ua, "macintosh"):
		return OSMac
	case strings.Contains(ua, "windows"):
		return OSWindows
	case strings.Contains(ua, "linux"):
		return OSLinux
	}
	return OSOther
}

func detectBrowser(ua string) BrowserFamily {
	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge/"):
		return BrowserEdge
	case strings.Contains(ua, "firefox/"):
		return BrowserFirefox
	// Chrome must be checked before Safari: Chrome UAs also say "safari".
	case strings.Contains(ua, "chrome/"), strings.Contains(ua, "crios/"):
		return BrowserChrome
	case strings.Contains(ua, "safari/"):
		return BrowserSafari
	}
	return BrowserOther
}

// relayOS lists OS families whose in-browser push support has been
// inconsistent enough that the relay platform is the safer default.
var relayOS = map[OSFamily]bool{
	OSiOS: true,
}

// standaloneGatedBrowsers only allow push once the app is installed.
var standaloneGatedBrowsers = map[BrowserFamily]bool{
	BrowserSafari: true,
}

// NeedsRelay is the routing policy table: relay whenever native push is
// unusable, the OS is on the inconsistent list, or the browser gates push
// behind installed mode and the app is not installed.
func NeedsRelay(c Capability) bool {
	if !c.NativePushUsable {
		return true
	}
	if relayOS[c.OSFamily] {
		return true
	}
	if standaloneGatedBrowsers[c.BrowserFamily] && !c.IsInstalledStandalone {
		return true
	}
	return false
}
