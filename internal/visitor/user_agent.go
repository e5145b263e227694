package visitor

import (
	"strings"

	"github.com/mileusna/useragent"
)

const unknown = "Unknown"

type DeviceType string

const (
	DeviceDesktop  DeviceType = "desktop"
	DeviceMobile   DeviceType = "mobile"
	DeviceTablet   DeviceType = "tablet"
	DeviceConsole  DeviceType = "console"
	DeviceSmartTV  DeviceType = "smarttv"
	DeviceWearable DeviceType = "wearable"
	DeviceEmbedded DeviceType = "embedded"
)

// ClientInfo is what a User-Agent string says about the visitor's client.
type ClientInfo struct {
	BrowserName    string
	BrowserVersion string
	OSName         string
	OSVersion      string
	DeviceType     DeviceType
}

// OperatingSystem joins name and version, e.g. "Windows 10".
func (c ClientInfo) OperatingSystem() string {
	if c.OSVersion == "" {
		return c.OSName
	}
	return strings.TrimSpace(c.OSName + " " + c.OSVersion)
}

// checked in order, before the parser's mobile/tablet flags
var deviceKeywords = []struct {
	device   DeviceType
	keywords []string
}{
	{DeviceConsole, []string{"playstation", "xbox", "nintendo"}},
	{DeviceSmartTV, []string{"smart-tv", "smarttv", "googletv", "appletv", "hbbtv", "web0s", "netcast", "bravia", "roku", "crkey", "aftb", "tizen tv"}},
	{DeviceWearable, []string{"watch os", "watchos", "wear os", "sm-r8", "glass 1"}},
	{DeviceEmbedded, []string{"qtembedded", "tesla/", "mozilla/5.0 (x11; linux armv7"}},
}

// ParseUserAgent classifies ua. It never fails: unknown parts are "Unknown"
// and the device defaults to desktop.
func ParseUserAgent(ua string) ClientInfo {
	parsed := useragent.Parse(ua)

	info := ClientInfo{
		BrowserName:    orUnknown(parsed.Name),
		BrowserVersion: orUnknown(parsed.Version),
		OSName:         orUnknown(parsed.OS),
		OSVersion:      parsed.OSVersion,
		DeviceType:     DeviceDesktop,
	}

	lowered := strings.ToLower(ua)
	for _, dk := range deviceKeywords {
		for _, keyword := range dk.keywords {
			if strings.Contains(lowered, keyword) {
				info.DeviceType = dk.device
				return info
			}
		}
	}

	switch {
	case parsed.Tablet:
		info.DeviceType = DeviceTablet
	case parsed.Mobile:
		info.DeviceType = DeviceMobile
	}
	return info
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
