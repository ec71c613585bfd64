package api

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/myle-app/myle/internal/api/models"
	"github.com/myle-app/myle/internal/events"
	"github.com/myle-app/myle/internal/updater"
)

// registerUpdateRoutes registers the updater endpoints. Commands answer 200 with
// success=false and an updater error code instead of an HTTP error.
func (s *Server) registerUpdateRoutes() {
	svc := s.options.Updater
	if svc == nil {
		return
	}

	commands := []struct {
		id, path, summary string
		run               func(ctx context.Context) (*updater.UpdateInfo, error)
	}{
		{"check-for-updates", "/api/update/check", "Check for Updates", svc.CheckForUpdates},
		{"force-check-updates", "/api/update/force-check", "Force Check for Updates", svc.ForceCheckForUpdates},
		{"retry-update", "/api/update/retry", "Retry Update", svc.RetryUpdate},
		{"download-update", "/api/update/download", "Download Update", func(ctx context.Context) (*updater.UpdateInfo, error) {
			// The download outlives a dropped request; cancel-update stops it.
			return nil, svc.DownloadUpdate(context.WithoutCancel(ctx))
		}},
		{"install-update", "/api/update/install", "Install Update", func(ctx context.Context) (*updater.UpdateInfo, error) {
			return nil, svc.InstallUpdate(context.WithoutCancel(ctx))
		}},
		{"cancel-update", "/api/update/cancel", "Cancel Update", func(ctx context.Context) (*updater.UpdateInfo, error) {
			return nil, svc.CancelUpdate(ctx)
		}},
	}

	for _, c := range commands {
		huma.Register(s.api, huma.Operation{
			OperationID: c.id,
			Method:      http.MethodPost,
			Path:        c.path,
			Summary:     c.summary,
			Tags:        []string{"update"},
			Errors:      []int{401},
			Security:    withAuth(),
		}, func(ctx context.Context, _ *struct{}) (*models.UpdateResultResponse, error) {
			info, err := c.run(ctx)
			return updateResult(info, err), nil
		})
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-state",
		Method:      http.MethodGet,
		Path:        "/api/update/state",
		Summary:     "Get Update State",
		Description: "Get the current update phase, pending release and retry count",
		Tags:        []string{"update"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.UpdateStateResponse, error) {
		return &models.UpdateStateResponse{Body: svc.GetState()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "save-update-info",
		Method:      http.MethodPost,
		Path:        "/api/update/info",
		Summary:     "Save Update Info",
		Description: "Persist the changelog shown after the next launch",
		Tags:        []string{"update"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.SaveUpdateInfoRequest) (*models.SuccessResponse, error) {
		resp := &models.SuccessResponse{}
		if err := svc.SaveUpdateInfo(input.Body); err != nil {
			resp.Body.Error = err.Error()
			return resp, nil
		}
		resp.Body.Success = true
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-update-info",
		Method:      http.MethodPost,
		Path:        "/api/update/info/consume",
		Summary:     "Consume Update Info",
		Description: "Return the saved changelog once and delete it",
		Tags:        []string{"update"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, _ *struct{}) (*models.UpdateInfoResponse, error) {
		resp := &models.UpdateInfoResponse{}
		m, err := svc.GetUpdateInfo()
		if err != nil {
			resp.Body.Error = updater.Describe(err)
			return resp, nil
		}
		resp.Body.Success = true
		resp.Body.Info = m
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "app-ready",
		Method:      http.MethodPost,
		Path:        "/api/app-ready",
		Summary:     "Application Ready",
		Description: "Signal that the main window has rendered so the splash surface can hand over",
		Tags:        []string{"update"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.AppReadyRequest) (*models.SuccessResponse, error) {
		svc.AppReady(input.Body.Width, input.Body.Height)
		return &models.SuccessResponse{Body: models.SuccessData{Success: true}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-loading-progress",
		Method:      http.MethodPost,
		Path:        "/api/app-loading",
		Summary:     "Report Loading Progress",
		Description: "Forward main-window loading progress to the splash surface",
		Tags:        []string{"update"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.LoadingProgressRequest) (*models.SuccessResponse, error) {
		message := input.Body.Message
		if message == "" {
			message = fmt.Sprintf("Loading application: %d%%", int(math.Round(input.Body.Progress)))
		}
		s.eventBus.Publish(events.UpdateStatusEvent{
			Status:  string(updater.PhaseDownloading),
			Message: message,
			Percent: input.Body.Progress,
		})
		return &models.SuccessResponse{Body: models.SuccessData{Success: true}}, nil
	})
}

func updateResult(info *updater.UpdateInfo, err error) *models.UpdateResultResponse {
	resp := &models.UpdateResultResponse{}
	if err != nil {
		resp.Body.Code = updater.CodeOf(err)
		resp.Body.Error = updater.Describe(err)
		return resp
	}
	resp.Body.Success = true
	resp.Body.UpdateInfo = info
	return resp
}
