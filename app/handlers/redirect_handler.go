package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"
	businessflow "github.com/torresguilherme/magic-qr-flows/business_flow"
)

const notFoundPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>QR code not available</title>
    <style>
        body { font-family: sans-serif; background: #fafafa; color: #333; text-align: center; padding: 15vh 1rem; }
        h1 { font-size: 1.5rem; }
    </style>
</head>
<body>
    <h1>This QR code was not found or has been disabled.</h1>
    <p>Please contact the owner of the code.</p>
</body>
</html>`

// RedirectHandlerInterface defines the contract for the public scan endpoint
type RedirectHandlerInterface interface {
	Redirect(c fiber.Ctx) error
}

// RedirectHandler answers scans of printed codes
type RedirectHandler struct {
	baseHandler
	redirectFlow businessflow.RedirectFlow
}

// NewRedirectHandler creates a new redirect handler
func NewRedirectHandler(redirectFlow businessflow.RedirectFlow) *RedirectHandler {
	return &RedirectHandler{
		baseHandler:  newBaseHandler(),
		redirectFlow: redirectFlow,
	}
}

// Redirect resolves a scanned code and sends the visitor on
// @Summary Resolve QR Code
// @Description Redirect to the destination of an active code, or render a not found page
// @Tags Redirect
// @Produce html
// @Param id path string true "QR code ID"
// @Success 302 "Redirect to destination"
// @Failure 404 "Unknown or disabled code"
// @Router /r/{id} [get]
func (h *RedirectHandler) Redirect(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/r/:id")
	defer cancel()

	destination, err := h.redirectFlow.Resolve(ctx, c.Params("id"), clientMetadata(c))
	if err != nil {
		if !businessflow.IsQRCodeNotFound(err) {
			log.Println("Redirect failed", err)
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(fiber.StatusNotFound).SendString(notFoundPage)
	}

	// Destinations can change at any time, so browsers must not cache the hop
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Redirect().Status(fiber.StatusFound).To(destination)
}
