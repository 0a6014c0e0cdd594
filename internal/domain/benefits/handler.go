package benefits

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

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
	read := api.Group("", auth.RequireRole("admin", "billing", "claims_processor"))
	read.POST("/eligibility/check", h.CheckEligibility)
	read.POST("/preauth/lookup", h.CheckPreauthorization)
	read.GET("/members/:patientId/utilization", h.GetUtilizationHistory)
	read.GET("/policies/:policyId/claim-template", h.GetClaimTemplate)
	read.GET("/benefits/:patientId/realtime", h.RealTimeLookup)
	read.POST("/benefits/service-coverage", h.CheckServiceCoverage)

	write := api.Group("", auth.RequireRole("admin", "billing"))
	write.POST("/utilization", h.RecordUtilization)
	write.POST("/benefits/deduct", h.AutomaticDeduction)
}

type eligibilityRequest struct {
	PatientID       uuid.UUID       `json:"patientId"`
	ProcedureCode   string          `json:"procedureCode"`
	AmountRequested decimal.Decimal `json:"amountRequested"`
	FinancialYear   string          `json:"financialYear"`
}

func (h *Handler) CheckEligibility(c echo.Context) error {
	var req eligibilityRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	result, err := h.svc.CheckEligibility(c.Request().Context(), req.PatientID, req.ProcedureCode, req.AmountRequested, req.FinancialYear)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) RecordUtilization(c echo.Context) error {
	var u BenefitUtilization
	if err := c.Bind(&u); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	if err := h.svc.RecordUtilization(c.Request().Context(), &u); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

type deductionRequest struct {
	ClaimID         uuid.UUID       `json:"claimId"`
	PatientID       uuid.UUID       `json:"patientId"`
	Amount          decimal.Decimal `json:"amount"`
	BenefitCategory string          `json:"benefitCategory"`
}

func (h *Handler) AutomaticDeduction(c echo.Context) error {
	var req deductionRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	u, err := h.svc.ProcessAutomaticDeduction(c.Request().Context(), req.ClaimID, req.PatientID, req.Amount, req.BenefitCategory)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetUtilizationHistory(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return apierrors.NewValidation("invalid patient id", nil)
	}
	var schemeID *uuid.UUID
	if raw := c.QueryParam("schemeId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apierrors.NewValidation("invalid scheme id", nil)
		}
		schemeID = &id
	}
	rows, err := h.svc.GetMemberUtilizationHistory(c.Request().Context(), patientID, c.QueryParam("financialYear"), schemeID)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []*BenefitUtilization{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetClaimTemplate(c echo.Context) error {
	policyID, err := uuid.Parse(c.Param("policyId"))
	if err != nil {
		return apierrors.NewValidation("invalid policy id", nil)
	}
	tpl, err := h.svc.GetClaimFormTemplate(c.Request().Context(), policyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tpl)
}

type preauthRequest struct {
	PatientID     uuid.UUID       `json:"patientId"`
	ProcedureCode string          `json:"procedureCode"`
	Amount        decimal.Decimal `json:"amount"`
	Urgency       string          `json:"urgency"`
}

func (h *Handler) CheckPreauthorization(c echo.Context) error {
	var req preauthRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	result, err := h.svc.CheckPreauthorizationRequirement(c.Request().Context(), req.PatientID, req.ProcedureCode, req.Amount, req.Urgency)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) RealTimeLookup(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return apierrors.NewValidation("invalid patient id", nil)
	}
	result, err := h.svc.PerformRealTimeLookup(c.Request().Context(), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type serviceCoverageRequest struct {
	PatientID       uuid.UUID `json:"patientId"`
	ServiceCode     string    `json:"serviceCode"`
	ServiceCategory string    `json:"serviceCategory"`
}

func (h *Handler) CheckServiceCoverage(c echo.Context) error {
	var req serviceCoverageRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.NewValidation("invalid request body", nil)
	}
	result, err := h.svc.CheckServiceCoverage(c.Request().Context(), req.PatientID, req.ServiceCode, req.ServiceCategory)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
