package audit

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	engine "payroll-auditor/core/audit"
	"payroll-auditor/core/storage"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new Audit feature.
func NewFeature(client storage.Client, bucket string, logger *zap.Logger, defaults engine.Config) *Feature {
	svc := NewService(client, bucket, logger, defaults)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "audit"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
