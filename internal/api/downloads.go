package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/myle-app/myle/internal/api/models"
	"github.com/myle-app/myle/internal/downloads"
)

// registerDownloadRoutes registers the download engine endpoints.
func (s *Server) registerDownloadRoutes() {
	svc := s.options.Downloads
	if svc == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID:   "download-start",
		Method:        http.MethodPost,
		Path:          "/api/downloads",
		Summary:       "Start Download",
		Description:   "Start a background download. Progress and outcome are reported as download-event SSE messages.",
		Tags:          []string{"downloads"},
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{400, 401, 409},
		Security:      withAuth(),
	}, func(_ context.Context, input *models.DownloadStartRequest) (*models.DownloadStartResponse, error) {
		if err := svc.Start(input.Body.ID, input.Body.URL, input.Body.Dest); err != nil {
			if errors.Is(err, downloads.ErrDuplicateID) {
				return nil, huma.Error409Conflict("download already active: " + input.Body.ID)
			}
			return nil, huma.Error400BadRequest(err.Error())
		}
		return &models.DownloadStartResponse{
			Body: models.DownloadStartData{ID: input.Body.ID, Accepted: true},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-downloads",
		Method:      http.MethodGet,
		Path:        "/api/downloads",
		Summary:     "List Downloads",
		Description: "List active downloads",
		Tags:        []string{"downloads"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.DownloadListResponse, error) {
		jobs := svc.List()
		if jobs == nil {
			jobs = []downloads.JobInfo{}
		}
		return &models.DownloadListResponse{
			Body: models.DownloadListData{Downloads: jobs, Count: len(jobs)},
		}, nil
	})

	// Pause, resume and cancel are no-ops for unknown ids.
	huma.Register(s.api, huma.Operation{
		OperationID: "download-pause",
		Method:      http.MethodPost,
		Path:        "/api/downloads/{id}/pause",
		Summary:     "Pause Download",
		Tags:        []string{"downloads"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.DownloadIDParam) (*models.DownloadActionResponse, error) {
		svc.Pause(input.ID)
		return actionResponse(svc, input.ID), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "download-resume",
		Method:      http.MethodPost,
		Path:        "/api/downloads/{id}/resume",
		Summary:     "Resume Download",
		Tags:        []string{"downloads"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.DownloadIDParam) (*models.DownloadActionResponse, error) {
		svc.Resume(input.ID)
		return actionResponse(svc, input.ID), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "download-cancel",
		Method:      http.MethodDelete,
		Path:        "/api/downloads/{id}",
		Summary:     "Cancel Download",
		Description: "Cancel a download and delete its partial file",
		Tags:        []string{"downloads"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.DownloadIDParam) (*models.DownloadActionResponse, error) {
		svc.Cancel(input.ID)
		return actionResponse(svc, input.ID), nil
	})
}

func actionResponse(svc DownloadService, id string) *models.DownloadActionResponse {
	return &models.DownloadActionResponse{
		Body: models.DownloadActionData{ID: id, Active: svc.IsActive(id)},
	}
}
