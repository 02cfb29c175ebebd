package controllers

import (
	"studioops_go/middleware"
	"studioops_go/services"
	"studioops_go/utils"

	"github.com/gofiber/fiber/v2"
)

// CatalogController serves the reference data the assignment form needs.
type CatalogController struct {
	catalog *services.Catalog
}

func NewCatalogController(catalog *services.Catalog) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// GetPackages - GET /api/catalog/packages
func (cc *CatalogController) GetPackages(c *fiber.Ctx) error {
	pkgs, err := cc.catalog.Packages(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"data": pkgs})
}

// GetClassTypes - GET /api/catalog/class-types
func (cc *CatalogController) GetClassTypes(c *fiber.Ctx) error {
	types, err := cc.catalog.ClassTypes(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"data": types, "timezones": utils.SupportedTimezones()})
}

// GetTemplates - GET /api/catalog/templates?instructor_id=
func (cc *CatalogController) GetTemplates(c *fiber.Ctx) error {
	instructorID := c.Query("instructor_id")
	if claims, err := middleware.GetCurrentClaims(c); err == nil && claims.Role == middleware.RoleInstructor {
		instructorID = claims.UserID
	}
	if instructorID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "instructor_id is required"})
	}
	templates, err := cc.catalog.ActiveTemplates(c.UserContext(), instructorID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"data": templates})
}
