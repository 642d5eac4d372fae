package handlers

import (
	"encoding/base64"
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/torresguilherme/magic-qr-flows/app/dto"
	businessflow "github.com/torresguilherme/magic-qr-flows/business_flow"
)

// QRCodeHandlerInterface defines the contract for QR code management handlers
type QRCodeHandlerInterface interface {
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	UpdateDestination(c fiber.Ctx) error
	SetActive(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Image(c fiber.Ctx) error
	ListScans(c fiber.Ctx) error
	ExportScans(c fiber.Ctx) error
}

// QRCodeHandler serves the owner-scoped QR code endpoints
type QRCodeHandler struct {
	baseHandler
	qrFlow businessflow.QRCodeFlow
}

// NewQRCodeHandler creates a new QR code handler
func NewQRCodeHandler(qrFlow businessflow.QRCodeFlow) *QRCodeHandler {
	return &QRCodeHandler{
		baseHandler: newBaseHandler(),
		qrFlow:      qrFlow,
	}
}

// handleFlowError maps business errors shared by every QR endpoint
func (h *QRCodeHandler) handleFlowError(c fiber.Ctx, err error, action, code string) error {
	switch {
	case businessflow.IsValidationFailed(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", businessflow.ValidationViolations(err))
	case businessflow.IsQRCodeNotFound(err):
		return h.ErrorResponse(c, fiber.StatusNotFound, "QR code not found", "QR_CODE_NOT_FOUND", nil)
	case businessflow.IsQRCodeNotDynamic(err):
		return h.ErrorResponse(c, fiber.StatusConflict, "Static QR codes cannot change destination", "QR_CODE_NOT_DYNAMIC", nil)
	case businessflow.IsExportFormat(err):
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported export format", "INVALID_EXPORT_FORMAT", nil)
	case businessflow.IsLookupCacheUnavailable(err):
		log.Println(action+" failed", err)
		var be *businessflow.BusinessError
		message := "Redirect cache unavailable"
		if errors.As(err, &be) {
			message = be.Message
		}
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, message, "QR_CACHE_UNAVAILABLE", nil)
	}

	log.Println(action+" failed", err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, action+" failed", code, nil)
}

func (h *QRCodeHandler) unauthorized(c fiber.Ctx) error {
	return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
}

// Create handles QR code creation
// @Summary Create QR Code
// @Description Create a static or dynamic QR code owned by the caller
// @Tags QR Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateQRCodeRequest true "QR code data"
// @Success 201 {object} dto.APIResponse{data=dto.QRCodeDTO} "QR code created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/qr-codes [post]
func (h *QRCodeHandler) Create(c fiber.Ctx) error {
	owner, ok := customerID(c)
	if !ok {
		return h.unauthorized(c)
	}

	var req dto.CreateQRCodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/qr-codes")
	defer cancel()

	result, err := h.qrFlow.Create(ctx, owner, &req, clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err, "Create QR code", "QR_CODE_CREATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "QR code created successfully", result)
}

// List handles listing the caller's QR codes
// @Summary List QR Codes
// @Description List the caller's QR codes, newest first
// @Tags QR Codes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.QRCodeListResponse} "QR codes retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/qr-codes [get]
func (h *QRCodeHandler) List(c fiber.Ctx) error {
	owner, ok := customerID(c)
	if !ok {
		return h.unauthorized(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/qr-codes")
	defer cancel()

	result, err := h.qrFlow.List(ctx, owner)
	if err != nil {
		return h.handleFlowError(c, err, "List QR codes", "QR_CODE_LIST_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "QR codes retrieved successfully", result)
}

// Get handles fetching a single QR code
// @Summary Get QR Code
// @Tags QR Codes
// @Produce json
// @Security BearerAuth
// @Param id path string true "QR code ID"
// @Success 200 {object} dto.APIResponse{data=dto.QRCodeDTO} "QR code retrieved"
// @Failure 404 {object} dto.APIResponse "QR code not found"
// @Router /api/v1/qr-codes/{id} [get]
func (h *QRCodeHandler) Get(c fiber.Ctx) error {
	owner, ok := customerID(c)
	if !ok {
		return h.unauthorized(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/qr-codes/:id")
	defer cancel()

	result, err := h.qrFlow.Get(ctx, owner, c.Params("id"))
	if err != nil {
		return h.handleFlowError(c, err, "Get QR code", "QR_CODE_FETCH_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "QR code retrieved successfully", result)
}

// UpdateDestination handles changing where a dynamic code redirects
// @Summary Update QR Destination
// @Description Change the destination URL of a dynamic QR code
// @Tags QR Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "QR code ID"
// @Param request body dto.UpdateQRDestinationRequest true "New destination"
// @Success 200 {object} dto.APIResponse{data=dto.QRCodeDTO} "Destination updated"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 404 {object} dto.APIResponse "QR code not found"
// @Failure 409 {object} dto.APIResponse "QR code is static"
// @Router /api/v1/qr-codes/{id}/destination [patch]
func (h *QRCodeHandler) UpdateDestination(c fiber.Ctx) error {
	owner, ok := customerID(c)
	if !ok {
		return h.unauthorized(c)
	}

	var req dto.UpdateQRDestinationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/qr-codes/:id/destination")
	defer cancel()

	result, err := h.qrFlow.UpdateDestination(ctx, owner, c.Params("id"), &req, clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err, "Update QR destination", "QR_CODE_UPDATE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "QR code destination updated successfully", result)
}

// SetActive handles enabling or disabling redirects for a code
// @Summary Activate or Deactivate QR Code
// @Tags QR Codes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "QR code ID"
// @Param request body dto.SetQRActiveRequest true "Active flag"
// @Success 200 {object} dto.APIResponse{data=dto.QRCodeDTO} "QR code updated"
// @Failure 404 {object} dto.APIResponse "QR code not found"
// @Router /api/v1/qr-codes/{id}/active [patch]
func (h *QRCodeHandler) SetActive(c fiber.Ctx) error {
	owner, ok := customerID(c)
	if !ok {
		return h.unauthorized(c)
	}

	var req dto.SetQRActiveRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, resp := h.validate(c, &req); !ok {
		return resp
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/qr-codes/:id/active")
	defer cancel()

	result, err := h.qrFlow.SetActive(ctx, owner, c.Params("id"), *req.IsActive, clientMetadata(c))
	if err != nil {
		return h.handleFlowError(c, err, "Update QR status", "QR_CODE_STATUS_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "QR code status updated successfully", result)
}

// Delete handles removing a code and its scan history
// @Summary Delete QR Code
// @Tags QR Codes
// @Produce json
// @Security BearerAuth
// @Param id path string true "QR code ID"
// @Success 200 {object} dto.APIResponse "QR code deleted"
// @Failure 404 {object} dto.APIResponse "QR code not found"
// @Router /api/v1/qr-codes/{id} [delete]
func (h *QRCodeHandler) Delete(c fiber.Ctx) error {
	owner, ok := customerID(c)
	if !ok {
		return h.unauthorized(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/qr-codes/:id")
	defer cancel()

	if err := h.qrFlow.Delete(ctx, owner, c.Params("id"), clientMetadata(c)); err != nil {
		return h.handleFlowError(c, err, "Delete QR code", "QR_CODE_DELETE_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "QR code deleted successfully", nil)
}

// Image renders the code as PNG
// @Summary Render QR Code Image
// @Description Render the code as a PNG download, or as a data URI when format=data_uri
// @Tags QR Codes
// @Produce png
// @Produce json
// @Security BearerAuth
// @Param id path string true "QR code ID"
// @Param size query int false "Edge length in pixels"
// @Param label query bool false "Draw the code name under the image"
// @Param format query string false "png (default) or data_uri"
// @Success 200 {file} file "PNG image"
// @Failure 404 {object} dto.APIResponse "QR code not found"
// @Router /api/v1/qr-codes/{id}/image [get]
func (h *QRCodeHandler) Image(c fiber.Ctx) error {
	owner, ok := customerID(c)
	if !ok {
		return h.unauthorized(c)
	}

	size := 0
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Size must be a number", "INVALID_SIZE", nil)
		}
		size = n
	}
	labeled := c.Query("label") == "true" || c.Query("label") == "1"

	ctx, cancel := h.createRequestContext(c, "/api/v1/qr-codes/:id/image")
	defer cancel()

	file, err := h.qrFlow.RenderImage(ctx, owner, c.Params("id"), size, labeled)
	if err != nil {
		return h.handleFlowError(c, err, "Render QR image", "QR_CODE_RENDER_FAILED")
	}

	if c.Query("format") == "data_uri" {
		qr, err := h.qrFlow.Get(ctx, owner, c.Params("id"))
		if err != nil {
			return h.handleFlowError(c, err, "Render QR image", "QR_CODE_RENDER_FAILED")
		}
		return h.SuccessResponse(c, fiber.StatusOK, "QR code rendered successfully", dto.QRImageResponse{
			DataURI:  "data:" + file.ContentType + ";base64," + base64.StdEncoding.EncodeToString(file.Data),
			Filename: file.Filename,
			Payload:  qr.Payload,
		})
	}

	return sendFile(c, file)
}

// ListScans handles listing recent scans of a code
// @Summary List QR Scans
// @Tags QR Codes
// @Produce json
// @Security BearerAuth
// @Param id path string true "QR code ID"
// @Param limit query int false "Maximum scans to return"
// @Success 200 {object} dto.APIResponse{data=dto.QRScanListResponse} "Scans retrieved"
// @Failure 404 {object} dto.APIResponse "QR code not found"
// @Router /api/v1/qr-codes/{id}/scans [get]
func (h *QRCodeHandler) ListScans(c fiber.Ctx) error {
	owner, ok := customerID(c)
	if !ok {
		return h.unauthorized(c)
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	ctx, cancel := h.createRequestContext(c, "/api/v1/qr-codes/:id/scans")
	defer cancel()

	result, err := h.qrFlow.ListScans(ctx, owner, c.Params("id"), limit)
	if err != nil {
		return h.handleFlowError(c, err, "List QR scans", "QR_SCAN_LIST_FAILED")
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Scans retrieved successfully", result)
}

// ExportScans handles downloading the scan history
// @Summary Export QR Scans
// @Tags QR Codes
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "QR code ID"
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file "Scan export"
// @Failure 400 {object} dto.APIResponse "Unsupported format"
// @Failure 404 {object} dto.APIResponse "QR code not found"
// @Router /api/v1/qr-codes/{id}/scans/export [get]
func (h *QRCodeHandler) ExportScans(c fiber.Ctx) error {
	owner, ok := customerID(c)
	if !ok {
		return h.unauthorized(c)
	}

	format := c.Query("format", "csv")

	ctx, cancel := h.createRequestContext(c, "/api/v1/qr-codes/:id/scans/export")
	defer cancel()

	file, err := h.qrFlow.ExportScans(ctx, owner, c.Params("id"), format)
	if err != nil {
		return h.handleFlowError(c, err, "Export QR scans", "QR_SCAN_EXPORT_FAILED")
	}
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+file.Filename+`"`)
	return sendFile(c, file)
}

func sendFile(c fiber.Ctx, file *dto.ExportFile) error {
	c.Set(fiber.HeaderContentType, file.ContentType)
	return c.Status(fiber.StatusOK).Send(file.Data)
}
