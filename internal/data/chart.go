package data

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
)

const (
	chartWidth  = 1000
	chartHeight = 500

	marginLeft   = 60
	marginRight  = 170
	marginTop    = 40
	marginBottom = 50

	yTicks = 5
)

var (
	chartBackground = color.RGBA{255, 255, 255, 255}
	chartAxis       = color.RGBA{40, 40, 40, 255}
	chartGrid       = color.RGBA{225, 225, 225, 255}

	// matplotlib tab10
	chartPalette = []color.RGBA{
		{31, 119, 180, 255},
		{255, 127, 14, 255},
		{44, 160, 44, 255},
		{214, 39, 40, 255},
		{148, 103, 189, 255},
		{140, 86, 75, 255},
		{227, 119, 194, 255},
		{127, 127, 127, 255},
		{188, 189, 34, 255},
		{23, 190, 207, 255},
	}
)

// chartRepo renders trend matrices as PNG line charts
type chartRepo struct {
	title string
}

// NewChartRepo creates a chart renderer that puts title above every chart
func NewChartRepo(title string) repo.ChartRepo {
	return &chartRepo{title: title}
}

// RenderTrend draws one line per keyword, days on the x axis and counts on the y axis
func (r *chartRepo) RenderTrend(ctx context.Context, m domain.TrendMatrix) ([]byte, error) {
	if m.Empty() {
		return nil, fmt.Errorf("render trend: empty matrix")
	}

	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{chartBackground}, image.Point{}, draw.Src)

	plot := image.Rect(marginLeft, marginTop, chartWidth-marginRight, chartHeight-marginBottom)
	maxY := m.Max()
	if maxY < 1 {
		maxY = 1
	}

	xAt := func(day int) int {
		if len(m.Days) == 1 {
			return (plot.Min.X + plot.Max.X) / 2
		}
		return plot.Min.X + day*(plot.Dx())/(len(m.Days)-1)
	}
	yAt := func(count int) int {
		return plot.Max.Y - count*plot.Dy()/maxY
	}

	// grid and y labels
	for i := 0; i <= yTicks; i++ {
		v := maxY * i / yTicks
		y := yAt(v)
		hline(img, plot.Min.X, plot.Max.X, y, chartGrid)
		label := strconv.Itoa(v)
		drawText(img, plot.Min.X-8-textWidth(label), y+4, label, chartAxis)
	}

	// axes
	hline(img, plot.Min.X, plot.Max.X, plot.Max.Y, chartAxis)
	vline(img, plot.Min.X, plot.Min.Y, plot.Max.Y, chartAxis)

	// x labels, thinned so they do not overlap
	step := 1
	if maxLabels := plot.Dx() / 50; maxLabels > 0 && len(m.Days) > maxLabels {
		step = (len(m.Days) + maxLabels - 1) / maxLabels
	}
	for d := 0; d < len(m.Days); d += step {
		label := m.Days[d].Format("01-02")
		x := xAt(d)
		vline(img, x, plot.Max.Y, plot.Max.Y+4, chartAxis)
		drawText(img, x-textWidth(label)/2, plot.Max.Y+18, label, chartAxis)
	}
	drawText(img, (plot.Min.X+plot.Max.X)/2-textWidth("Date")/2, chartHeight-12, "Date", chartAxis)
	drawText(img, 8, marginTop-12, "Occurrences", chartAxis)

	// series
	for k, kw := range m.Keywords {
		c := chartPalette[k%len(chartPalette)]
		prevX, prevY := -1, -1
		for d := range m.Days {
			x, y := xAt(d), yAt(m.Counts[d][k])
			if prevX >= 0 {
				thickLine(img, prevX, prevY, x, y, c)
			}
			marker(img, x, y, c)
			prevX, prevY = x, y
		}

		ly := marginTop + 10 + k*18
		lx := plot.Max.X + 20
		thickLine(img, lx, ly, lx+20, ly, c)
		drawText(img, lx+28, ly+4, kw, chartAxis)
	}

	drawText(img, chartWidth/2-textWidth(r.title)/2, 22, r.title, chartAxis)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func drawText(img draw.Image, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func textWidth(text string) int {
	return font.MeasureString(basicfont.Face7x13, text).Round()
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x, y, c)
	}
}

func marker(img *image.RGBA, x, y int, c color.RGBA) {
	for dx := -3; dx <= 3; dx++ {
		for dy := -3; dy <= 3; dy++ {
			img.SetRGBA(x+dx, y+dy, c)
		}
	}
}

// thickLine draws a 2px Bresenham line
func thickLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		img.SetRGBA(x0+1, y0, c)
		img.SetRGBA(x0, y0+1, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
