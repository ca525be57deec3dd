package animator

import (
	"path/filepath"

	"github.com/flanksource/commons/logger"

	"github.com/flanksource/animator/excalidraw"
	"github.com/flanksource/animator/geometry"
)

// FitFile writes a copy of the diagram at opts.Input fitted to the canvas.
// output defaults to <name>-fitted.excalidraw next to the input.
func FitFile(opts Options, output string) (string, geometry.FitTransform, error) {
	opts = opts.WithBackendDefaults()
	data, err := ReadInput(opts.Input)
	if err != nil {
		return "", geometry.Identity, err
	}
	d, err := excalidraw.Parse(data)
	if err != nil {
		return "", geometry.Identity, err
	}
	fitted, t, err := d.FitToCanvas(float64(opts.Width), float64(opts.Height), opts.Padding)
	if err != nil {
		return "", geometry.Identity, err
	}
	logger.Infof("%s", t)

	if output == "" {
		output = filepath.Join(filepath.Dir(opts.Input), nameOf(opts.Input)+"-fitted.excalidraw")
	}
	if err := fitted.Save(output); err != nil {
		return "", geometry.Identity, err
	}
	return output, t, nil
}
