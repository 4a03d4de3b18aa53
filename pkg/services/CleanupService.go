package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/adampresley/adamgokit/retrier"
	"github.com/adampresley/photovault/pkg/storage"
	"github.com/alitto/pond/v2"
)

const deleteTimeout = 30 * time.Second

type CleanupServicer interface {
	EnqueueDelete(url, blobPath string)
	Stop()
}

type CleanupServiceConfig struct {
	MaxWorkers  int
	ShutdownCtx context.Context
	Storage     storage.Adapter
}

/*
CleanupService owns the fire-and-forget backend deletes. Metadata removal
has already happened by the time anything lands here, so failures are
logged and never surfaced; a task that still fails after retries is
dead-letter logged. Tasks queued at process exit can be lost, which is the
accepted trade for not blocking responses on cleanup.
*/
type CleanupService struct {
	pool    pond.Pool
	storage storage.Adapter
}

func NewCleanupService(config CleanupServiceConfig) CleanupService {
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 4
	}

	return CleanupService{
		pool:    pond.NewPool(config.MaxWorkers, pond.WithContext(config.ShutdownCtx)),
		storage: config.Storage,
	}
}

func (s CleanupService) EnqueueDelete(url, blobPath string) {
	s.pool.Submit(func() {
		var (
			err error
		)

		retrier.Retry(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
			defer cancel()

			if err = s.storage.Delete(ctx, url, blobPath); err != nil {
				slog.Error("backend delete failed. trying again", "blobPath", blobPath, "error", err)
				return err
			}

			return nil
		})

		if err != nil {
			slog.Error("dead letter: backend delete failed permanently", "url", url, "blobPath", blobPath, "error", err)
		}
	})
}

func (s CleanupService) Stop() {
	_ = s.pool.Stop().Wait()
}
