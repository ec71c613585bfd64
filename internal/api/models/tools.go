package models

import "github.com/myle-app/myle/internal/sparkle"

// ExtractRequest extracts an archive with 7-Zip.
type ExtractRequest struct {
	Body struct {
		FilePath string `json:"filePath" minLength:"1" example:"C:\\Users\\me\\Downloads\\tool.7z" doc:"Archive path"`
		Password string `json:"password,omitempty" doc:"Archive password"`
		DestDir  string `json:"destDir,omitempty" doc:"Parent directory for the extraction folder"`
	}
}

type ExtractData struct {
	Success bool   `json:"success" example:"true" doc:"Whether extraction succeeded"`
	Output  string `json:"output,omitempty" doc:"Tool output or status message"`
	Dir     string `json:"dir,omitempty" doc:"Extraction directory"`
	Opened  bool   `json:"opened,omitempty" doc:"True when the archive was opened with the default handler"`
	Error   string `json:"error,omitempty" doc:"Error message"`
}

type ExtractResponse struct {
	Body ExtractData
}

type SparklePlanResponse struct {
	Body sparkle.Plan
}
