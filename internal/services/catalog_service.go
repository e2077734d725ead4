package services

import (
	"metalworks_backend/internal/models"
	"metalworks_backend/internal/repositories"
)

// CatalogService exposes the read-only catalog lists used by dropdown feeds.
type CatalogService interface {
	GetClients() ([]models.Client, error)
	GetMaterials() ([]models.Material, error)
}

type catalogService struct {
	catalogRepo repositories.CatalogRepository
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(cr repositories.CatalogRepository) CatalogService {
	return &catalogService{catalogRepo: cr}
}

func (s *catalogService) GetClients() ([]models.Client, error) {
	return s.catalogRepo.GetClients()
}

func (s *catalogService) GetMaterials() ([]models.Material, error) {
	return s.catalogRepo.GetMaterials()
}
