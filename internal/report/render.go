package report

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"

	"github.com/golang/freetype/truetype"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"esgscope/internal/calculator"
	"esgscope/internal/model"
	"esgscope/internal/util"
)

// 报告区域布局（逻辑像素，渲染时乘以超采样倍数）
const (
	regionWidth     = 1100.0
	pagePadding     = 24.0
	panelGap        = 24.0
	panelPadding    = 16.0
	panelTop        = 92.0
	headingHeight   = 48.0
	rowHeight       = 32.0
	overallBoxW     = 170.0
	overallBoxH     = 96.0
	esgPieSize      = 280.0
	legendRowHeight = 22.0
	categoryPieSize = 240.0
)

var (
	colorText     = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	colorMuted    = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
	colorFaint    = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	colorBorder   = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorHeadLine = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	colorRowLine  = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	colorBoxFill  = color.RGBA{R: 0xf7, G: 0xf7, B: 0xf7, A: 0xff}
)

var esgNames = map[string]string{
	"E": "Environmental",
	"S": "Social",
	"G": "Governance",
}

// ErrInvalidScale 超采样倍数必须为正
var ErrInvalidScale = errors.New("render scale must be positive")

// Renderer 把评分卡渲染为报告区域位图
// 相同的评分卡和倍数总是得到相同的像素。
type Renderer struct {
	font *truetype.Font
}

// NewRenderer 使用 go-chart 内置字体创建渲染器
func NewRenderer() (*Renderer, error) {
	f, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("load default font: %w", err)
	}
	return &Renderer{font: f}, nil
}

// Render 以 scale 倍超采样把报告区域画到不透明白底位图上
func (r *Renderer) Render(sc model.Scorecard, scale float64) (*image.RGBA, error) {
	if !(scale > 0) || math.IsInf(scale, 0) {
		return nil, ErrInvalidScale
	}

	charts := calculator.Project(sc)
	rating := calculator.RateOverall(sc.Overall)
	catPie := positiveSlices(charts.Categories)

	panelW := (regionWidth - 2*pagePadding - panelGap) / 2
	leftH := headingHeight + esgPieSize + 3*legendRowHeight + panelPadding
	rightH := headingHeight + rowHeight*float64(len(sc.Categories)+1) + panelPadding
	if len(sc.Categories) == 0 {
		rightH = headingHeight + 40 + panelPadding
	}
	if len(catPie) > 0 {
		rightH += panelPadding + categoryPieSize
	}
	height := panelTop + math.Max(leftH, rightH) + pagePadding

	c := newCanvas(r.font, scale, regionWidth, height)

	c.text(pagePadding, 50, 24, colorText, "ESG Scorecard")
	if sc.Filename != "" {
		c.text(pagePadding, 74, 13, colorMuted, c.fit(13, "File: "+sc.Filename, regionWidth-2*pagePadding))
	}

	left := pagePadding
	right := pagePadding + panelW + panelGap
	c.stroke(left, panelTop, panelW, leftH, colorBorder)
	c.stroke(right, panelTop, panelW, rightH, colorBorder)

	if err := r.drawSummary(c, left, panelTop, panelW, sc, rating, charts.ESG); err != nil {
		return nil, err
	}
	if err := r.drawCategories(c, right, panelTop, panelW, sc, catPie); err != nil {
		return nil, err
	}
	return c.img, nil
}

func (r *Renderer) drawSummary(c *canvas, x, y, w float64, sc model.Scorecard, rating calculator.Rating, esg calculator.ESGSeries) error {
	c.text(x+panelPadding, y+30, 17, colorText, "Overall & ESG")

	bx, by := x+panelPadding, y+headingHeight
	c.fill(bx, by, overallBoxW, overallBoxH, colorBoxFill)
	c.textCenter(bx+overallBoxW/2, by+28, 12, colorMuted, "Overall Score")
	c.textCenter(bx+overallBoxW/2, by+74, 34, colorText, util.FormatScore(sc.Overall))

	ty := by + overallBoxH + 26
	c.text(bx, ty, 14, colorText, "Rating: "+rating.Band)
	if rating.Range != "" {
		ty += 20
		c.text(bx, ty, 12, colorMuted, "Band "+rating.Range)
	}
	for _, line := range c.wrap(11, rating.Description, overallBoxW) {
		ty += 17
		c.text(bx, ty, 11, colorFaint, line)
	}

	px := x + w - panelPadding - esgPieSize
	py := y + headingHeight
	if esg.NoData {
		c.textCenter(px+esgPieSize/2, py+esgPieSize/2, 13, colorFaint, "No ESG data available")
		return nil
	}

	slices := make([]calculator.Slice, 0, len(esg.Slices))
	for _, s := range esg.Slices {
		s.Label = fmt.Sprintf("%s: %s", s.Label, util.FormatShare(s.Value))
		slices = append(slices, s)
	}
	pie, err := r.pie(positiveSlices(slices), esgPieSize, c.scale)
	if err != nil {
		return err
	}
	c.image(px, py, esgPieSize, esgPieSize, pie)

	ly := py + esgPieSize
	for _, s := range esg.Slices {
		c.fill(px+8, ly+6, 12, 12, hexColor(s.Color))
		c.text(px+28, ly+17, 12, colorText, esgNames[s.Label])
		c.textRight(px+esgPieSize-8, ly+17, 12, colorText, util.FormatShare(s.Value))
		ly += legendRowHeight
	}
	return nil
}

func (r *Renderer) drawCategories(c *canvas, x, y, w float64, sc model.Scorecard, catPie []calculator.Slice) error {
	c.text(x+panelPadding, y+30, 17, colorText, "Category Scores")

	left := x + panelPadding
	right := x + w - panelPadding
	ty := y + headingHeight

	if len(sc.Categories) == 0 {
		c.text(left, ty+24, 13, colorFaint, "No category scores available")
		ty += 40
	} else {
		c.text(left, ty+21, 13, colorText, "Category")
		c.textRight(right, ty+21, 13, colorText, "Score")
		c.fill(left, ty+rowHeight-1, right-left, 1, colorHeadLine)
		ty += rowHeight

		for _, cat := range sc.Categories {
			score := util.FormatScore(cat.Score)
			scoreW := c.measure(13, score)
			c.text(left, ty+21, 13, colorText, c.fit(13, cat.Name, right-left-scoreW-24))
			c.textRight(right, ty+21, 13, colorText, score)
			c.fill(left, ty+rowHeight-1, right-left, 1, colorRowLine)
			ty += rowHeight
		}
	}

	if len(catPie) == 0 {
		return nil
	}
	pie, err := r.pie(catPie, categoryPieSize, c.scale)
	if err != nil {
		return err
	}
	c.image(x+(w-categoryPieSize)/2, ty+panelPadding, categoryPieSize, categoryPieSize, pie)
	return nil
}

// pie 用 go-chart 画饼图；尺寸和 DPI 同步放大保证文字清晰
func (r *Renderer) pie(slices []calculator.Slice, size, scale float64) (image.Image, error) {
	if len(slices) == 0 {
		return nil, errors.New("pie chart needs at least one positive value")
	}
	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		values = append(values, chart.Value{
			Label: s.Label,
			Value: s.Value,
			Style: chart.Style{
				FillColor:   hexColor(s.Color),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 1,
				FontColor:   drawing.ColorWhite,
			},
		})
	}

	px := int(math.Round(size * scale))
	pc := chart.PieChart{
		Width:      px,
		Height:     px,
		DPI:        chart.DefaultDPI * scale,
		Font:       r.font,
		Background: chart.Style{FillColor: drawing.ColorWhite},
		Canvas:     chart.Style{FillColor: drawing.ColorWhite},
		Values:     values,
	}

	var buf bytes.Buffer
	if err := pc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie chart: %w", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("decode pie chart: %w", err)
	}
	return img, nil
}

// positiveSlices 饼图只能画正值
func positiveSlices(in []calculator.Slice) []calculator.Slice {
	out := make([]calculator.Slice, 0, len(in))
	for _, s := range in {
		if s.Value > 0 && !math.IsInf(s.Value, 0) {
			out = append(out, s)
		}
	}
	return out
}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

// canvas 逻辑坐标到超采样位图的绘制辅助
type canvas struct {
	img   *image.RGBA
	scale float64
	font  *truetype.Font
	faces map[float64]font.Face
}

func newCanvas(f *truetype.Font, scale, w, h float64) *canvas {
	c := &canvas{
		scale: scale,
		font:  f,
		faces: make(map[float64]font.Face),
	}
	c.img = image.NewRGBA(image.Rect(0, 0, c.px(w), c.px(h)))
	draw.Draw(c.img, c.img.Bounds(), image.White, image.Point{}, draw.Src)
	return c
}

func (c *canvas) px(v float64) int {
	return int(math.Round(v * c.scale))
}

func (c *canvas) face(size float64) font.Face {
	if f, ok := c.faces[size]; ok {
		return f
	}
	f := truetype.NewFace(c.font, &truetype.Options{Size: size * c.scale, DPI: 72})
	c.faces[size] = f
	return f
}

func (c *canvas) rect(x, y, w, h float64) image.Rectangle {
	return image.Rect(c.px(x), c.px(y), c.px(x+w), c.px(y+h))
}

func (c *canvas) fill(x, y, w, h float64, col color.Color) {
	draw.Draw(c.img, c.rect(x, y, w, h), image.NewUniform(col), image.Point{}, draw.Src)
}

func (c *canvas) stroke(x, y, w, h float64, col color.Color) {
	c.fill(x, y, w, 1, col)
	c.fill(x, y+h-1, w, 1, col)
	c.fill(x, y, 1, h, col)
	c.fill(x+w-1, y, 1, h, col)
}

func (c *canvas) measure(size float64, s string) float64 {
	d := font.Drawer{Face: c.face(size)}
	return float64(d.MeasureString(s).Ceil()) / c.scale
}

func (c *canvas) text(x, baseline, size float64, col color.Color, s string) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: c.face(size),
		Dot:  fixed.Point26_6{X: fixed.I(c.px(x)), Y: fixed.I(c.px(baseline))},
	}
	d.DrawString(s)
}

func (c *canvas) textRight(right, baseline, size float64, col color.Color, s string) {
	c.text(right-c.measure(size, s), baseline, size, col, s)
}

func (c *canvas) textCenter(cx, baseline, size float64, col color.Color, s string) {
	c.text(cx-c.measure(size, s)/2, baseline, size, col, s)
}

// fit 超出宽度时截断并加省略号
func (c *canvas) fit(size float64, s string, width float64) string {
	if c.measure(size, s) <= width {
		return s
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		candidate := string(runes[:n]) + "…"
		if c.measure(size, candidate) <= width {
			return candidate
		}
	}
	return "…"
}

// wrap 按单词折行
func (c *canvas) wrap(size float64, s string, width float64) []string {
	var lines []string
	var line string
	for _, word := range strings.Fields(s) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if line != "" && c.measure(size, candidate) > width {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

func (c *canvas) image(x, y, w, h float64, src image.Image) {
	dst := c.rect(x, y, w, h)
	if src.Bounds().Size() == dst.Size() {
		draw.Draw(c.img, dst, src, src.Bounds().Min, draw.Over)
		return
	}
	draw.CatmullRom.Scale(c.img, dst, src, src.Bounds(), draw.Over, nil)
}
