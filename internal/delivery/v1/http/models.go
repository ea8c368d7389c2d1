package http

import "github.com/DRSN-tech/imgshrink/internal/usecase"

type ImageResult struct {
	ID           string  `json:"id"`
	SizeBeforeKB int     `json:"size_before_kb"`
	SizeAfterKB  int     `json:"size_after_kb"`
	SavedKB      int     `json:"saved_kb"`
	SavedPercent float64 `json:"saved_percent"`
}

type UploadResponse struct {
	Format  string        `json:"format"`
	Quality int           `json:"quality"`
	Results []ImageResult `json:"results"`
}

func NewUploadResponse(res *usecase.ProcessBatchRes) *UploadResponse {
	results := make([]ImageResult, 0, len(res.Results))
	for _, r := range res.Results {
		results = append(results, ImageResult{
			ID:           r.ID,
			SizeBeforeKB: r.SizeBeforeKB,
			SizeAfterKB:  r.SizeAfterKB,
			SavedKB:      r.SavedKB,
			SavedPercent: r.SavedPercent,
		})
	}

	return &UploadResponse{
		Format:  string(res.Format),
		Quality: res.Quality,
		Results: results,
	}
}
