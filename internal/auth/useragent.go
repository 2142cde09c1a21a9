package auth

import "strings"

const unknownAgent = "Unknown"

// ParseUserAgent extracts a browser and platform name from a User-Agent header.
// Order matters: Edge and Opera UAs contain "Chrome", Chrome UAs contain
// "Safari", and iOS UAs contain "Mac OS X".
func ParseUserAgent(ua string) (browser, platform string) {
	return parseBrowser(ua), parsePlatform(ua)
}

// DeviceName is the default display name for a device
func DeviceName(browser, platform string) string {
	return browser + " on " + platform
}

func parseBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge/"):
		return "Edge"
	case strings.Contains(ua, "OPR/"), strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Chrome/"), strings.Contains(ua, "CriOS/"):
		return "Chrome"
	case strings.Contains(ua, "Firefox/"), strings.Contains(ua, "FxiOS/"):
		return "Firefox"
	case strings.Contains(ua, "Safari/"):
		return "Safari"
	default:
		return unknownAgent
	}
}

func parsePlatform(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		return "iOS"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "Macintosh"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	default:
		return unknownAgent
	}
}
