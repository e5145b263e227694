package visitor

import "time"

// PageView is one append-only row of visitor telemetry.
type PageView struct {
	ID              int64     `json:"id"`
	Path            string    `json:"path"`
	UserAgent       string    `json:"userAgent"`
	IPAddress       string    `json:"ipAddress"`
	Browser         string    `json:"browser"`
	BrowserVersion  string    `json:"browserVersion"`
	OperatingSystem string    `json:"operatingSystem"`
	DeviceType      string    `json:"deviceType"`
	Referer         string    `json:"referer"`
	Country         *string   `json:"country"`
	City            *string   `json:"city"`
	SessionID       string    `json:"sessionId"`
	CreatedAt       time.Time `json:"createdAt"`
}

type PageViewInput struct {
	Path      string `json:"path" validate:"required"`
	UserAgent string `json:"userAgent" validate:"required"`
	IP        string `json:"ip" validate:"required"`
	Referer   string `json:"referer"`
	SessionID string `json:"sessionId"`
}
