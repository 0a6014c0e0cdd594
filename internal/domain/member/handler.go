package member

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
	readGroup.GET("/members/:patientId/policies", h.GetMemberPolicies)
	readGroup.GET("/members/:patientId/benefits", h.GetMemberBenefitSummary)
	readGroup.GET("/members/policies/:memberPolicyId/schemes", h.GetMemberSchemes)

	writeGroup := api.Group("", auth.RequireRole("admin", "billing"))
	writeGroup.POST("/members/policies", h.EnrollMember)
	writeGroup.POST("/members/schemes", h.AssignScheme)
}

func (h *Handler) EnrollMember(c echo.Context) error {
	var mp MemberPolicy
	if err := c.Bind(&mp); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.EnrollMember(c.Request().Context(), &mp); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, mp)
}

func (h *Handler) AssignScheme(c echo.Context) error {
	var ms MemberScheme
	if err := c.Bind(&ms); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.AssignScheme(c.Request().Context(), &ms); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ms)
}

func (h *Handler) GetMemberPolicies(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return apierrors.NewValidation("invalid patientId", nil)
	}
	items, err := h.svc.GetMemberPolicies(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*MemberPolicyDetail{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetMemberSchemes(c echo.Context) error {
	memberPolicyID, err := uuid.Parse(c.Param("memberPolicyId"))
	if err != nil {
		return apierrors.NewValidation("invalid memberPolicyId", nil)
	}
	items, err := h.svc.GetMemberSchemes(c.Request().Context(), memberPolicyID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*MemberScheme{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetMemberBenefitSummary(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return apierrors.NewValidation("invalid patientId", nil)
	}
	rows, err := h.svc.GetMemberBenefitSummary(c.Request().Context(), patientID, c.QueryParam("financialYear"))
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []*BenefitSummaryRow{}
	}
	return c.JSON(http.StatusOK, rows)
}
