package usecase

import "context"

type ImageUC interface {
	ProcessBatch(ctx context.Context, req *ProcessBatchReq) (*ProcessBatchRes, error)
	DownloadOne(ctx context.Context, req *DownloadOneReq) (*Download, error)
	DownloadMany(ctx context.Context, req *DownloadManyReq) (*Download, error)
}

type SweepUC interface {
	Sweep(ctx context.Context) (*SweepRes, error)
}
