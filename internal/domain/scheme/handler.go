package scheme

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/erless/coverage/internal/platform/auth"
	"github.com/erless/coverage/pkg/apierrors"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "billing", "claims_processor"))
	readGroup.GET("/schemes/:id", h.GetScheme)
	readGroup.GET("/policies/:policyId/schemes", h.ListPolicySchemes)
	readGroup.GET("/coverage/:schemeId/:codeType/:code", h.GetCoverageMapping)

	writeGroup := api.Group("", auth.RequireRole("admin", "billing"))
	writeGroup.POST("/schemes", h.CreateScheme)
	writeGroup.PUT("/schemes/:id", h.UpdateScheme)
	writeGroup.POST("/schemes/:schemeId/benefits", h.AddSchemeBenefits)
	writeGroup.POST("/coverage", h.CreateCoverageMapping)
}

func (h *Handler) CreateScheme(c echo.Context) error {
	var sc Scheme
	if err := c.Bind(&sc); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.CreateScheme(c.Request().Context(), &sc); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sc)
}

type schemeWithBenefits struct {
	*Scheme
	Benefits []*SchemeBenefit `json:"benefits"`
}

func (h *Handler) GetScheme(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.NewValidation("invalid id", nil)
	}
	sc, benefits, err := h.svc.GetScheme(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, schemeWithBenefits{Scheme: sc, Benefits: benefits})
}

func (h *Handler) ListPolicySchemes(c echo.Context) error {
	policyID, err := uuid.Parse(c.Param("policyId"))
	if err != nil {
		return apierrors.NewValidation("invalid policyId", nil)
	}
	items, err := h.svc.ListSchemesByPolicy(c.Request().Context(), policyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateScheme(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.NewValidation("invalid id", nil)
	}
	var sc Scheme
	if err := c.Bind(&sc); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	sc.ID = id
	if err := h.svc.UpdateScheme(c.Request().Context(), &sc); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) AddSchemeBenefits(c echo.Context) error {
	schemeID, err := uuid.Parse(c.Param("schemeId"))
	if err != nil {
		return apierrors.NewValidation("invalid schemeId", nil)
	}
	var benefits []*SchemeBenefit
	if err := c.Bind(&benefits); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.AddSchemeBenefits(c.Request().Context(), schemeID, benefits); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, benefits)
}

func (h *Handler) CreateCoverageMapping(c echo.Context) error {
	var m CoverageMapping
	if err := c.Bind(&m); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.CreateCoverageMapping(c.Request().Context(), &m); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetCoverageMapping(c echo.Context) error {
	schemeID, err := uuid.Parse(c.Param("schemeId"))
	if err != nil {
		return apierrors.NewValidation("invalid schemeId", nil)
	}
	m, err := h.svc.GetCoverageMapping(c.Request().Context(), schemeID, c.Param("codeType"), c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}
