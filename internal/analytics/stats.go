package analytics

import "time"

type TimeCount struct {
	Time  time.Time `json:"time"`
	Count int64     `json:"count"`
}

// KeyCount is a count grouped by path, browser or device type.
type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type DashboardStats struct {
	BlogCount        int64 `json:"blogCount"`
	GalleryCount     int64 `json:"galleryCount"`
	TestimonialCount int64 `json:"testimonialCount"`
	ViewsCount       int64 `json:"viewsCount"`
}

type CurrentVisitors struct {
	Count int64 `json:"count"`
}
