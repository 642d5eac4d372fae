package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"
	businessflow "github.com/torresguilherme/magic-qr-flows/business_flow"
)

type ProfileHandlerInterface interface {
	GetProfile(c fiber.Ctx) error
}

type ProfileHandler struct {
	baseHandler
	flow businessflow.ProfileFlow
}

func NewProfileHandler(flow businessflow.ProfileFlow) *ProfileHandler {
	return &ProfileHandler{baseHandler: newBaseHandler(), flow: flow}
}

// GetProfile returns the authenticated customer's profile and dashboard totals
// @Summary Get profile
// @Description Retrieve the authenticated customer's profile, credits and QR code totals
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ProfileResponse} "Profile retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/profile [get]
func (h *ProfileHandler) GetProfile(c fiber.Ctx) error {
	id, ok := customerID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/profile")
	defer cancel()

	res, err := h.flow.GetProfile(ctx, id)
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}
		log.Println("Get profile failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get profile", "GET_PROFILE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved successfully", res)
}
