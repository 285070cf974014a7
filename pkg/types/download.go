// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DownloadStatus is the outcome of one URL in a download batch.
type DownloadStatus string

const (
	DownloadOK     DownloadStatus = "OK"
	DownloadSkip   DownloadStatus = "SKIP"
	DownloadExists DownloadStatus = "EXISTS"
	DownloadFail   DownloadStatus = "FAIL"
)

// DownloadResult reports what happened to one URL.
type DownloadResult struct {
	// Name is the safe filename chosen for the URL. Empty when skipped.
	Name string `json:"name" yaml:"name"`

	// URL is the original URL as given. Empty for a missing entry.
	URL string `json:"url" yaml:"url"`

	// Status is OK, SKIP, EXISTS, or FAIL.
	Status DownloadStatus `json:"status" yaml:"status"`

	// PathOrMessage holds the local path for OK and EXISTS, or a
	// human-readable reason for SKIP and FAIL.
	PathOrMessage string `json:"path_or_msg" yaml:"path_or_msg"`
}
