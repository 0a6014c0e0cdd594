package insurer

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/erless/coverage/internal/platform/auth"
	"github.com/erless/coverage/pkg/apierrors"
	"github.com/erless/coverage/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, billing, claims_processor
	readGroup := api.Group("", auth.RequireRole("admin", "billing", "claims_processor"))
	readGroup.GET("/insurers", h.ListInsurers)
	readGroup.GET("/insurers/:id", h.GetInsurer)
	readGroup.GET("/insurers/:insurerId/policies", h.ListInsurerPolicies)
	readGroup.GET("/policies/:id", h.GetPolicy)
	readGroup.GET("/policies/:policyId/history", h.GetPolicyHistory)
	readGroup.GET("/policies/:policyId/exclusions", h.ListExclusions)

	// Write endpoints – admin, billing
	writeGroup := api.Group("", auth.RequireRole("admin", "billing"))
	writeGroup.POST("/insurers", h.CreateInsurer)
	writeGroup.PUT("/insurers/:id", h.UpdateInsurer)
	writeGroup.DELETE("/insurers/:id", h.DeactivateInsurer)
	writeGroup.POST("/policies", h.CreatePolicy)
	writeGroup.PUT("/policies/:id", h.UpdatePolicy)
	writeGroup.PATCH("/policies/:id/deactivate", h.DeactivatePolicy)
	writeGroup.POST("/policies/history", h.RecordPolicyChange)
	writeGroup.POST("/exclusions", h.CreateExclusion)
}

// -- Insurer handlers --

func (h *Handler) CreateInsurer(c echo.Context) error {
	var i Insurer
	if err := c.Bind(&i); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.CreateInsurer(c.Request().Context(), &i); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, i)
}

func (h *Handler) GetInsurer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.NewValidation("invalid id", nil)
	}
	i, err := h.svc.GetInsurer(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) ListInsurers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInsurers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateInsurer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.NewValidation("invalid id", nil)
	}
	var i Insurer
	if err := c.Bind(&i); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	i.ID = id
	if err := h.svc.UpdateInsurer(c.Request().Context(), &i); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, i)
}

func (h *Handler) DeactivateInsurer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.NewValidation("invalid id", nil)
	}
	if err := h.svc.DeactivateInsurer(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Policy handlers --

func (h *Handler) CreatePolicy(c echo.Context) error {
	var p Policy
	if err := c.Bind(&p); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.CreatePolicy(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPolicy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.NewValidation("invalid id", nil)
	}
	p, err := h.svc.GetPolicy(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListInsurerPolicies(c echo.Context) error {
	insurerID, err := uuid.Parse(c.Param("insurerId"))
	if err != nil {
		return apierrors.NewValidation("invalid insurerId", nil)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPoliciesByInsurer(c.Request().Context(), insurerID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePolicy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.NewValidation("invalid id", nil)
	}
	var upd Policy
	if err := c.Bind(&upd); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	p, err := h.svc.UpdatePolicy(c.Request().Context(), id, &upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

type deactivatePolicyRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) DeactivatePolicy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apierrors.NewValidation("invalid id", nil)
	}
	var req deactivatePolicyRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.DeactivatePolicy(c.Request().Context(), id, req.Reason); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "policy deactivated"})
}

// -- Policy history handlers --

func (h *Handler) GetPolicyHistory(c echo.Context) error {
	policyID, err := uuid.Parse(c.Param("policyId"))
	if err != nil {
		return apierrors.NewValidation("invalid policyId", nil)
	}
	items, err := h.svc.GetPolicyHistory(c.Request().Context(), policyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) RecordPolicyChange(c echo.Context) error {
	var rec PolicyHistory
	if err := c.Bind(&rec); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.RecordPolicyChange(c.Request().Context(), &rec); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}

// -- Exclusion handlers --

func (h *Handler) CreateExclusion(c echo.Context) error {
	var e PolicyExclusion
	if err := c.Bind(&e); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.CreateExclusion(c.Request().Context(), &e); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) ListExclusions(c echo.Context) error {
	policyID, err := uuid.Parse(c.Param("policyId"))
	if err != nil {
		return apierrors.NewValidation("invalid policyId", nil)
	}
	items, err := h.svc.ListExclusions(c.Request().Context(), policyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
