package models

import "github.com/myle-app/myle/internal/downloads"

// DownloadStartRequest starts a fire-and-forget download.
type DownloadStartRequest struct {
	Body struct {
		ID   string `json:"id" minLength:"1" example:"sparkle-1718000000000" doc:"Caller-chosen download id"`
		URL  string `json:"url" minLength:"1" example:"https://example.com/tool.zip" doc:"Source URL"`
		Dest string `json:"dest,omitempty" example:"tool.zip" doc:"Destination file name or absolute path"`
	}
}

type DownloadStartData struct {
	ID       string `json:"id" example:"sparkle-1718000000000" doc:"Download id"`
	Accepted bool   `json:"accepted" example:"true" doc:"Whether the download was queued"`
}

type DownloadStartResponse struct {
	Body DownloadStartData
}

// DownloadIDParam addresses a single download.
type DownloadIDParam struct {
	ID string `path:"id" example:"sparkle-1718000000000" doc:"Download id"`
}

type DownloadActionData struct {
	ID     string `json:"id" example:"sparkle-1718000000000" doc:"Download id"`
	Active bool   `json:"active" example:"true" doc:"Whether the id refers to an active download"`
}

type DownloadActionResponse struct {
	Body DownloadActionData
}

type DownloadListData struct {
	Downloads []downloads.JobInfo `json:"downloads" doc:"Active downloads"`
	Count     int                 `json:"count" example:"1" doc:"Number of active downloads"`
}

type DownloadListResponse struct {
	Body DownloadListData
}
