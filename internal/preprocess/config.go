package preprocess

import (
	"fmt"
	"os"

	"github.com/nfnt/resize"
	"github.com/tidwall/gjson"
)

// Config mirrors the fields of a Hugging Face preprocessor_config.json that
// affect how pixels become model input.
type Config struct {
	Width         int
	Height        int
	DoResize      bool
	Resample      resize.InterpolationFunction
	DoRescale     bool
	RescaleFactor float32
	DoNormalize   bool
	Mean          [3]float32
	Std           [3]float32
}

// DefaultConfig matches the SigLIP image processor.
func DefaultConfig() Config {
	return Config{
		Width:         224,
		Height:        224,
		DoResize:      true,
		Resample:      resize.Bilinear,
		DoRescale:     true,
		RescaleFactor: 1.0 / 255.0,
		DoNormalize:   true,
		Mean:          [3]float32{0.5, 0.5, 0.5},
		Std:           [3]float32{0.5, 0.5, 0.5},
	}
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read preprocessor config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig overlays the fields present in data on DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	if !gjson.ValidBytes(data) {
		return Config{}, fmt.Errorf("invalid preprocessor config JSON")
	}
	cfg := DefaultConfig()
	doc := gjson.ParseBytes(data)

	if h, w := doc.Get("size.height"), doc.Get("size.width"); h.Exists() && w.Exists() {
		cfg.Height, cfg.Width = int(h.Int()), int(w.Int())
	} else if edge := doc.Get("size.shortest_edge"); edge.Exists() {
		cfg.Height, cfg.Width = int(edge.Int()), int(edge.Int())
	} else if size := doc.Get("size"); size.Type == gjson.Number {
		cfg.Height, cfg.Width = int(size.Int()), int(size.Int())
	}
	if cfg.Height <= 0 || cfg.Width <= 0 {
		return Config{}, fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}

	if v := doc.Get("do_resize"); v.Exists() {
		cfg.DoResize = v.Bool()
	}
	if v := doc.Get("resample"); v.Exists() {
		cfg.Resample = resampleFilter(v.Int())
	}
	if v := doc.Get("do_rescale"); v.Exists() {
		cfg.DoRescale = v.Bool()
	}
	if v := doc.Get("rescale_factor"); v.Exists() {
		cfg.RescaleFactor = float32(v.Float())
	}
	if v := doc.Get("do_normalize"); v.Exists() {
		cfg.DoNormalize = v.Bool()
	}

	var err error
	if cfg.Mean, err = triple(doc.Get("image_mean"), cfg.Mean); err != nil {
		return Config{}, fmt.Errorf("image_mean: %w", err)
	}
	if cfg.Std, err = triple(doc.Get("image_std"), cfg.Std); err != nil {
		return Config{}, fmt.Errorf("image_std: %w", err)
	}
	for _, s := range cfg.Std {
		if cfg.DoNormalize && s == 0 {
			return Config{}, fmt.Errorf("image_std must not contain zero")
		}
	}

	return cfg, nil
}

// resampleFilter maps PIL resampling codes onto the closest resize filter.
func resampleFilter(code int64) resize.InterpolationFunction {
	switch code {
	case 0:
		return resize.NearestNeighbor
	case 1:
		return resize.Lanczos3
	case 3:
		return resize.Bicubic
	default:
		return resize.Bilinear
	}
}

func triple(v gjson.Result, def [3]float32) ([3]float32, error) {
	if !v.Exists() {
		return def, nil
	}
	if v.Type == gjson.Number {
		f := float32(v.Float())
		return [3]float32{f, f, f}, nil
	}
	values := v.Array()
	switch len(values) {
	case 1:
		f := float32(values[0].Float())
		return [3]float32{f, f, f}, nil
	case 3:
		return [3]float32{float32(values[0].Float()), float32(values[1].Float()), float32(values[2].Float())}, nil
	default:
		return def, fmt.Errorf("expected 1 or 3 values, got %d", len(values))
	}
}
