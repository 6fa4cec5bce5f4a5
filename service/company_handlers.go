package service

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/greenscope/greenscope/api"
	"github.com/greenscope/greenscope/internal/middleware"
	"github.com/greenscope/greenscope/store"
)

// GetCompany handles GET /api/companies/me.
func (s *Service) GetCompany(c *gin.Context) {
	user := middleware.CurrentUser(c)
	company, err := s.store.GetCompany(c.Request.Context(), user.CompanyID)
	if err != nil {
		sendStoreError(c, err, "Company not found")
		return
	}
	c.JSON(http.StatusOK, company)
}

// UpdateCompany handles PATCH /api/companies/me.
func (s *Service) UpdateCompany(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req api.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid company payload")
		return
	}

	company, err := s.store.GetCompany(c.Request.Context(), user.CompanyID)
	if err != nil {
		sendStoreError(c, err, "Company not found")
		return
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.MainLocation != nil {
		company.MainLocation = *req.MainLocation
	}
	if req.BusinessSector != nil {
		sector := store.BusinessSector(*req.BusinessSector)
		if _, ok := s.catalog.SectorByID(sector); !ok {
			sendError(c, http.StatusBadRequest, fmt.Sprintf("Unknown business sector %q", *req.BusinessSector))
			return
		}
		company.BusinessSector = sector
	}
	if req.Description != nil {
		company.Description = *req.Description
	}
	if req.Website != nil {
		company.Website = *req.Website
	}
	if req.Phone != nil {
		company.Phone = *req.Phone
	}
	if req.Frameworks != nil {
		company.ActiveFrameworks = req.Frameworks
	}

	if err := s.store.UpdateCompany(c.Request.Context(), company); err != nil {
		sendStoreError(c, err, "Company not found")
		return
	}

	s.audit(c, "company_update", "company", company.ID, nil)
	c.JSON(http.StatusOK, company)
}

// GetCompanyStats handles GET /api/companies/me/stats.
func (s *Service) GetCompanyStats(c *gin.Context) {
	user := middleware.CurrentUser(c)
	stats, err := s.store.CompanyStats(c.Request.Context(), user.CompanyID)
	if err != nil {
		sendStoreError(c, err, "Company not found")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers handles GET /api/companies/me/users.
func (s *Service) ListUsers(c *gin.Context) {
	user := middleware.CurrentUser(c)
	users, err := s.store.ListUsersByCompany(c.Request.Context(), user.CompanyID)
	if err != nil {
		sendStoreError(c, err, "Company not found")
		return
	}
	c.JSON(http.StatusOK, users)
}

// ListLocations handles GET /api/companies/me/locations.
func (s *Service) ListLocations(c *gin.Context) {
	user := middleware.CurrentUser(c)
	locations, err := s.store.ListLocations(c.Request.Context(), user.CompanyID)
	if err != nil {
		sendStoreError(c, err, "Company not found")
		return
	}
	c.JSON(http.StatusOK, locations)
}

// CreateLocation handles POST /api/companies/me/locations.
func (s *Service) CreateLocation(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req api.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid location payload")
		return
	}

	location := &store.Location{
		CompanyID:        user.CompanyID,
		Name:             req.Name,
		LocationType:     store.LocationType(req.LocationType),
		ParentLocationID: req.ParentLocationID,
		Address:          req.Address,
		Description:      req.Description,
	}
	if location.LocationType == "" {
		location.LocationType = store.LocationSub
	}
	if req.ParentLocationID != "" {
		if _, err := s.store.GetLocation(c.Request.Context(), user.CompanyID, req.ParentLocationID); err != nil {
			sendStoreError(c, err, "Parent location not found")
			return
		}
	}

	if err := s.store.CreateLocation(c.Request.Context(), location); err != nil {
		sendStoreError(c, err, "Location not found")
		return
	}

	s.audit(c, "location_create", "location", location.ID, map[string]string{"name": location.Name})
	c.JSON(http.StatusCreated, location)
}

// UpdateLocation handles PUT /api/companies/me/locations/:id.
func (s *Service) UpdateLocation(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req api.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid location payload")
		return
	}

	location, err := s.store.GetLocation(c.Request.Context(), user.CompanyID, c.Param("id"))
	if err != nil {
		sendStoreError(c, err, "Location not found")
		return
	}

	location.Name = req.Name
	location.Address = req.Address
	location.Description = req.Description
	if req.LocationType != "" {
		location.LocationType = store.LocationType(req.LocationType)
	}

	if err := s.store.UpdateLocation(c.Request.Context(), location); err != nil {
		sendStoreError(c, err, "Location not found")
		return
	}

	s.audit(c, "location_update", "location", location.ID, nil)
	c.JSON(http.StatusOK, location)
}

// DeleteLocation handles DELETE /api/companies/me/locations/:id. Locations
// with tasks attached cannot be removed.
func (s *Service) DeleteLocation(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id := c.Param("id")

	if err := s.store.DeleteLocation(c.Request.Context(), user.CompanyID, id); err != nil {
		sendStoreError(c, err, "Location not found")
		return
	}

	s.audit(c, "location_delete", "location", id, nil)
	c.Status(http.StatusNoContent)
}
