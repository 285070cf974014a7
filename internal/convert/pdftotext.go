// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pdiddy/causal-kg/internal/container"
	"github.com/pdiddy/causal-kg/pkg/types"
)

const binPdftotext = "pdftotext"

// PdftotextConverter extracts text with poppler's pdftotext, either from
// the host PATH or inside a container image.
type PdftotextConverter struct {
	exec container.Executor

	// bin is the host pdftotext path. Empty when running in a container.
	bin string

	runtime container.Runtime
	image   string
}

// NewLocalConverter returns a converter running pdftotext from PATH.
func NewLocalConverter(exec container.Executor) (*PdftotextConverter, error) {
	bin, err := exec.LookPath(binPdftotext)
	if err != nil {
		return nil, fmt.Errorf("%s not found on PATH: %w", binPdftotext, err)
	}
	return &PdftotextConverter{exec: exec, bin: bin}, nil
}

// NewContainerConverter returns a converter running pdftotext in image. It
// verifies the image exists locally before returning.
func NewContainerConverter(rt container.Runtime, image string) (*PdftotextConverter, error) {
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("%s image not available in %s: %w", binPdftotext, rt.Name(), err)
	}
	return &PdftotextConverter{runtime: rt, image: image}, nil
}

// NewConverter selects a backend from cfg. The pdftotext backend falls back
// to a container when the binary is not on PATH.
func NewConverter(cfg types.ConversionConfig) (*PdftotextConverter, error) {
	exec := container.OSExecutor{}
	switch cfg.Backend {
	case "", types.BackendPdftotext:
		if c, err := NewLocalConverter(exec); err == nil {
			return c, nil
		}
	case types.BackendContainer:
	default:
		return nil, fmt.Errorf("unknown conversion backend %q", cfg.Backend)
	}

	rt, err := container.DetectRuntimeWith(exec)
	if err != nil {
		return nil, err
	}
	image := cfg.Image
	if image == "" {
		image = types.DefaultImage
	}
	return NewContainerConverter(rt, image)
}

// Convert returns the UTF-8 text of pdfPath with page breaks turned into
// newlines.
func (p *PdftotextConverter) Convert(ctx context.Context, pdfPath string) (string, error) {
	var out bytes.Buffer

	if p.runtime != nil {
		f, err := os.Open(pdfPath)
		if err != nil {
			return "", fmt.Errorf("opening PDF %s: %w", pdfPath, err)
		}
		defer f.Close()

		args := []string{binPdftotext, "-enc", "UTF-8", "-", "-"}
		if err := p.runtime.Run(ctx, p.image, args, f, &out); err != nil {
			return "", fmt.Errorf("converting %s: %w", pdfPath, err)
		}
	} else {
		args := []string{"-enc", "UTF-8", pdfPath, "-"}
		if err := p.exec.RunPiped(ctx, p.bin, args, nil, &out); err != nil {
			return "", fmt.Errorf("converting %s with %s: %w", pdfPath, binPdftotext, err)
		}
	}

	text := strings.ReplaceAll(out.String(), "\f", "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text extracted from %s", pdfPath)
	}
	return text, nil
}
