package captcha

import (
	"bytes"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	imageWidth  = 200
	imageHeight = 80
	fontSize    = 32
)

// palette for glyphs and noise; dark enough to read on the light
// background.
var palette = []color.RGBA{
	{R: 40, G: 40, B: 160, A: 255},
	{R: 160, G: 40, B: 40, A: 255},
	{R: 40, G: 120, B: 40, A: 255},
	{R: 120, G: 40, B: 120, A: 255},
	{R: 160, G: 90, B: 20, A: 255},
	{R: 20, G: 110, B: 110, A: 255},
	{R: 70, G: 70, B: 70, A: 255},
}

var captchaFace font.Face

func init() {
	ft, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return
	}
	captchaFace, _ = opentype.NewFace(ft, &opentype.FaceOptions{
		Size: fontSize,
		DPI:  72,
	})
}

// RenderImage draws the question with per-character jitter over dot and
// line noise, and returns the PNG bytes. Rendering never fails a
// verification: on any problem it returns nil and the caller sends the
// question as plain text.
func (g *Generator) RenderImage(question string) []byte {
	if captchaFace == nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetRGB(0.96, 0.96, 0.94)
	dc.Clear()
	dc.SetFontFace(captchaFace)

	g.drawDots(dc)
	g.drawText(dc, question)
	g.drawLines(dc)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (g *Generator) drawDots(dc *gg.Context) {
	count := 50 + g.rnd.Intn(51)
	for i := 0; i < count; i++ {
		c := palette[g.rnd.Intn(len(palette))]
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 120)
		dc.DrawCircle(g.rnd.Float64()*imageWidth, g.rnd.Float64()*imageHeight, 1+g.rnd.Float64())
		dc.Fill()
	}
}

func (g *Generator) drawLines(dc *gg.Context) {
	count := 8 + g.rnd.Intn(8)
	for i := 0; i < count; i++ {
		c := palette[g.rnd.Intn(len(palette))]
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 90)
		dc.SetLineWidth(1 + g.rnd.Float64())
		dc.DrawLine(
			g.rnd.Float64()*imageWidth, g.rnd.Float64()*imageHeight,
			g.rnd.Float64()*imageWidth, g.rnd.Float64()*imageHeight,
		)
		dc.Stroke()
	}
}

// drawText places each character separately with its own color and a
// small vertical jitter.
func (g *Generator) drawText(dc *gg.Context, text string) {
	runes := []rune(text)
	totalWidth := 0.0
	widths := make([]float64, len(runes))
	for i, r := range runes {
		w, _ := dc.MeasureString(string(r))
		widths[i] = w
		totalWidth += w
	}

	x := (imageWidth - totalWidth) / 2
	if x < 4 {
		x = 4
	}
	for i, r := range runes {
		c := palette[g.rnd.Intn(len(palette))]
		dc.SetRGBA255(int(c.R), int(c.G), int(c.B), 255)
		y := imageHeight/2 + fontSize/3 + (g.rnd.Float64()*10 - 5)
		dc.DrawString(string(r), x, y)
		x += widths[i]
	}
}
