// Package preprocess turns image files into the fixed-shape float32 tensor an
// image-classification model expects.
package preprocess

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const channels = 3

type Processor struct {
	cfg Config
}

func NewProcessor(cfg Config) *Processor {
	return &Processor{cfg: cfg}
}

func (p *Processor) Config() Config {
	return p.cfg
}

// InputShape is the NCHW shape of the tensor returned by Preprocess.
func (p *Processor) InputShape() []int64 {
	return []int64{1, channels, int64(p.cfg.Height), int64(p.cfg.Width)}
}

// Open decodes the image at path and converts it to opaque RGB.
func (p *Processor) Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot identify image file %q: %w", path, err)
	}
	return ToRGB(img), nil
}

// ToRGB drops the alpha channel, keeping the unpremultiplied colour values.
func ToRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

// Preprocess resizes img and lays it out channel-first.
func (p *Processor) Preprocess(img image.Image) ([]float32, error) {
	width, height := p.cfg.Width, p.cfg.Height

	if p.cfg.DoResize {
		img = resize.Resize(uint(width), uint(height), img, p.cfg.Resample)
	}

	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, fmt.Errorf("image is %dx%d, model expects %dx%d",
			bounds.Dx(), bounds.Dy(), width, height)
	}

	plane := width * height
	inputData := make([]float32, channels*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			pixelIndex := y*width + x
			inputData[pixelIndex] = p.scale(r>>8, 0)
			inputData[plane+pixelIndex] = p.scale(g>>8, 1)
			inputData[2*plane+pixelIndex] = p.scale(b>>8, 2)
		}
	}

	return inputData, nil
}

func (p *Processor) scale(v uint32, channel int) float32 {
	f := float32(v)
	if p.cfg.DoRescale {
		f *= p.cfg.RescaleFactor
	}
	if p.cfg.DoNormalize {
		f = (f - p.cfg.Mean[channel]) / p.cfg.Std[channel]
	}
	return f
}
