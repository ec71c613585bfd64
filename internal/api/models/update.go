package models

import "github.com/myle-app/myle/internal/updater"

// UpdateResultData is the invoke-style result of every update command. Failures are
// reported with success=false and an error code, never as an HTTP error.
type UpdateResultData struct {
	Success    bool                `json:"success" example:"true" doc:"Whether the command succeeded"`
	Error      string              `json:"error,omitempty" doc:"Error message"`
	Code       string              `json:"code,omitempty" example:"INVALID_STATE" doc:"Updater error code"`
	UpdateInfo *updater.UpdateInfo `json:"updateInfo,omitempty" doc:"Release information from a check"`
}

type UpdateResultResponse struct {
	Body UpdateResultData
}

type UpdateStateResponse struct {
	Body *updater.State
}

// SaveUpdateInfoRequest persists the post-update changelog.
type SaveUpdateInfoRequest struct {
	Body updater.Manifest
}

type UpdateInfoData struct {
	Success bool              `json:"success" example:"true" doc:"Whether a manifest was found"`
	Error   string            `json:"error,omitempty" example:"No update info" doc:"Error message"`
	Info    *updater.Manifest `json:"info,omitempty" doc:"Post-update manifest"`
}

type UpdateInfoResponse struct {
	Body UpdateInfoData
}
