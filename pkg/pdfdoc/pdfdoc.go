// Package pdfdoc inspects rendered PDF documents.
package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Magic prefixes every PDF file.
const Magic = "%PDF-"

var ErrNotPDF = errors.New("not a PDF document")

// pdfcpu writes a config directory under the user config dir on first use and
// exits the process when it cannot. The service keeps no files, so it always
// runs on the built-in defaults.
var disableConfigDir = sync.OnceFunc(api.DisableConfigDir)

// Info describes a parsed document.
type Info struct {
	Pages int
	Size  int
}

// HasMagic reports whether data starts with the PDF header.
func HasMagic(data []byte) bool {
	return bytes.HasPrefix(data, []byte(Magic))
}

// Inspect parses and validates data with pdfcpu and reports its page count.
func Inspect(data []byte) (Info, error) {
	if !HasMagic(data) {
		return Info{}, ErrNotPDF
	}
	disableConfigDir()
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return Info{}, fmt.Errorf("pdfcpu read: %w", err)
	}
	return Info{Pages: ctx.PageCount, Size: len(data)}, nil
}
