package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/airbridge/internal/core/domain"
	"github.com/custodia-labs/airbridge/internal/core/ports/driven"
	"github.com/custodia-labs/airbridge/internal/core/ports/driving"
	"github.com/custodia-labs/airbridge/internal/logger"
)

// Ensure RedeliveryService implements the interface.
var _ driving.Redeliverer = (*RedeliveryService)(nil)

// RedeliveryService retries delivery of an already captured run without
// re-extracting from the source. It reads the manifest to locate captures
// but never writes to it: the original capture's history stays as it was,
// whether the retry succeeds or not.
type RedeliveryService struct {
	runtime  driven.ConnectorRuntime
	dest     driven.DestinationRunner
	manifest driven.ManifestStore
}

// NewRedeliveryService creates a redelivery service.
func NewRedeliveryService(
	runtime driven.ConnectorRuntime,
	dest driven.DestinationRunner,
	manifest driven.ManifestStore,
) *RedeliveryService {
	return &RedeliveryService{
		runtime:  runtime,
		dest:     dest,
		manifest: manifest,
	}
}

// Redeliver feeds a prior run's data file to a destination connector.
func (s *RedeliveryService) Redeliver(ctx context.Context, req driving.RedeliverRequest) error {
	// 1. Validate the request.
	if req.DestinationImage == "" {
		return fmt.Errorf("%w: destination image is required", domain.ErrConfigInvalid)
	}
	if req.DestinationConfigPath == "" {
		return fmt.Errorf("%w: destination config path is required", domain.ErrConfigInvalid)
	}
	if req.CatalogPath == "" {
		return fmt.Errorf("%w: catalog path is required", domain.ErrConfigInvalid)
	}
	if req.DataFile == "" && req.Identity == "" {
		return fmt.Errorf("%w: an identity or a data file is required", domain.ErrConfigInvalid)
	}

	// 2. Locate the capture to redeliver.
	dataFile := req.DataFile
	if dataFile == "" {
		entry, err := s.manifest.Latest(ctx, req.Identity)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("identity %s has no recorded runs: %w", req.Identity, err)
			}
			return fmt.Errorf("manifest latest: %w", err)
		}
		if entry.DataFile == "" {
			return fmt.Errorf("%w: latest run of %s recorded a failure, nothing to redeliver", domain.ErrNotFound, req.Identity)
		}
		dataFile = entry.DataFile
	}

	// 3. Probe the runtime and resolve the destination image.
	if err := s.runtime.Ping(ctx); err != nil {
		return err
	}
	if err := s.runtime.EnsureImage(ctx, req.DestinationImage); err != nil {
		return err
	}

	// 4. Check the destination configuration.
	if err := s.dest.Check(ctx, req.DestinationImage, req.DestinationConfigPath); err != nil {
		return fmt.Errorf("destination check: %w", err)
	}

	// 5. Replay the captured lines into the destination.
	logger.Info("Redelivering %s to %s", dataFile, req.DestinationImage)
	msgs, errs := s.dest.Write(ctx, driven.WriteRequest{
		Image:       req.DestinationImage,
		ConfigPath:  req.DestinationConfigPath,
		CatalogPath: req.CatalogPath,
		DataPath:    dataFile,
	})
	if err := drainDestination(ctx, msgs, errs); err != nil {
		return fmt.Errorf("redeliver %s: %w", dataFile, err)
	}
	logger.Info("Redelivery complete")
	return nil
}
