package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/myle-app/myle/internal/api/models"
)

// registerToolRoutes registers archive extraction and Sparkle resolution.
func (s *Server) registerToolRoutes() {
	if x := s.options.Archives; x != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "extract-archive",
			Method:      http.MethodPost,
			Path:        "/api/archives/extract",
			Summary:     "Extract Archive",
			Description: "Extract an archive with 7-Zip next to it, or into destDir. Falls back to opening it with the default handler.",
			Tags:        []string{"tools"},
			Errors:      []int{400, 401},
			Security:    withAuth(),
		}, func(ctx context.Context, input *models.ExtractRequest) (*models.ExtractResponse, error) {
			res, err := x.Extract(ctx, input.Body.FilePath, input.Body.Password, input.Body.DestDir)
			if err != nil {
				s.logger.Warn("Archive extraction failed", "file", input.Body.FilePath, "error", err)
				return &models.ExtractResponse{Body: models.ExtractData{Error: err.Error()}}, nil
			}
			return &models.ExtractResponse{
				Body: models.ExtractData{
					Success: true,
					Output:  res.Output,
					Dir:     res.Dir,
					Opened:  res.Opened,
				},
			}, nil
		})
	}

	if r := s.options.Sparkle; r != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "ensure-sparkle",
			Method:      http.MethodPost,
			Path:        "/api/sparkle/ensure",
			Summary:     "Ensure Sparkle",
			Description: "Decide whether the Sparkle archive must be downloaded, and from where",
			Tags:        []string{"tools"},
			Errors:      []int{401},
			Security:    withAuth(),
		}, func(ctx context.Context, _ *struct{}) (*models.SparklePlanResponse, error) {
			return &models.SparklePlanResponse{Body: r.Ensure(ctx)}, nil
		})
	}
}
