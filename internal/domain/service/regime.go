package service

import (
	"context"

	"SignalForge/internal/domain/models"
)

// RegimeDetector classifies the broad-market regime from a bar series.
type RegimeDetector interface {
	Detect(ctx context.Context, symbol string, bars []models.Bar) (models.MacroContext, error)
}
