package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/torresguilherme/magic-qr-flows/utils"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const labelBandHeight = 24

// QRImageService renders QR payloads to PNG.
type QRImageService interface {
	// Render encodes payload at recovery level High. A non-empty label is printed under the code.
	Render(payload string, size int, label string) ([]byte, error)
	RenderDataURI(payload string, size int, label string) (string, error)
}

type qrImageServiceImpl struct {
	defaultSize int
}

func NewQRImageService(defaultSize int) QRImageService {
	return &qrImageServiceImpl{defaultSize: ClampImageSize(defaultSize, utils.QRImageDefaultSize)}
}

// ClampImageSize bounds a requested edge length; zero selects fallback.
func ClampImageSize(size, fallback int) int {
	if size <= 0 {
		size = fallback
	}
	if size < utils.QRImageMinSize {
		return utils.QRImageMinSize
	}
	if size > utils.QRImageMaxSize {
		return utils.QRImageMaxSize
	}
	return size
}

func (s *qrImageServiceImpl) Render(payload string, size int, label string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("empty qr payload")
	}
	size = ClampImageSize(size, s.defaultSize)

	code, err := qrcode.New(payload, qrcode.Highest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr payload: %w", err)
	}

	if label == "" {
		return code.PNG(size)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size, size+labelBandHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(0, 0, size, size), code.Image(size), image.Point{}, draw.Over)
	drawLabel(canvas, label, size)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to write png: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *qrImageServiceImpl) RenderDataURI(payload string, size int, label string) (string, error) {
	raw, err := s.Render(payload, size, label)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func drawLabel(dst *image.RGBA, label string, width int) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	// basicfont is monospaced; cut the label to the canvas width
	maxRunes := (width - 8) / face.Advance
	runes := []rune(label)
	if maxRunes > 0 && len(runes) > maxRunes {
		runes = append(runes[:maxRunes-1], '~')
	}
	text := string(runes)

	textWidth := d.MeasureString(text).Round()
	x := (width - textWidth) / 2
	if x < 0 {
		x = 0
	}
	y := width + (labelBandHeight+face.Ascent)/2
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
