package models

// Health check models
type HealthData struct {
	Status          string `json:"status" example:"ok" doc:"Service status"`
	Message         string `json:"message" example:"API is healthy" doc:"Status message"`
	ActiveDownloads int    `json:"activeDownloads" example:"1" doc:"Downloads currently tracked by the engine"`
	UpdatePhase     string `json:"updatePhase,omitempty" example:"idle" doc:"Current updater phase"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"a1b2c3d4" doc:"Unique build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Compiler used"`
	Platform  string `json:"platform" example:"windows/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// SuccessData is the generic invoke-style result.
type SuccessData struct {
	Success bool   `json:"success" example:"true" doc:"Whether the operation succeeded"`
	Error   string `json:"error,omitempty" doc:"Error message when success is false"`
}

type SuccessResponse struct {
	Body SuccessData
}

// App ready models
type AppReadyRequest struct {
	Body struct {
		Width  int `json:"width,omitempty" example:"1280" minimum:"0" doc:"Main window width"`
		Height int `json:"height,omitempty" example:"800" minimum:"0" doc:"Main window height"`
	}
}

type LoadingProgressRequest struct {
	Body struct {
		Progress float64 `json:"progress" example:"40" minimum:"0" maximum:"100" doc:"Loading progress percentage"`
		Message  string  `json:"message,omitempty" doc:"Optional splash message"`
	}
}
