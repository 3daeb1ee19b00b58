package domain

// Paper geometry of every exported document, in inches.
const (
	A4WidthInches  = 8.27
	A4HeightInches = 11.69
	// MarginInches is 10mm, applied on all four sides.
	MarginInches = 0.3937
)

// PrintOptions is the fixed print configuration handed to the browser.
type PrintOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	Margin          float64
	PrintBackground bool
}

// DefaultPrintOptions returns A4 with background graphics and symmetric margins.
func DefaultPrintOptions() PrintOptions {
	return PrintOptions{
		PaperWidth:      A4WidthInches,
		PaperHeight:     A4HeightInches,
		Margin:          MarginInches,
		PrintBackground: true,
	}
}

// PDFArtifact is the transient result of a successful render. It is written to
// the response and dropped; nothing keeps it past the request.
type PDFArtifact struct {
	TaskID  string
	Data    []byte
	Pages   int
	Options PrintOptions
}

func (a *PDFArtifact) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}
