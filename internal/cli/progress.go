package cli

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/codesum/internal/analyzer"
)

// CLIProgressReporter implements progress reporting with progress bars.
type CLIProgressReporter struct {
	out            io.Writer
	fileBar        *progressbar.ProgressBar
	totalFiles     int
	processedFiles int
	degraded       int
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{out: out}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	log.Println("Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files, directories, docFiles int) {
	log.Printf("Summarizing %s files in %s directories (%d documentation files)\n",
		formatNumber(files), formatNumber(directories), docFiles)
}

func (c *CLIProgressReporter) OnFileProcessingStart(totalFiles int) {
	c.totalFiles = totalFiles
	c.processedFiles = 0
	c.degraded = 0

	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Extracting files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileProcessed(fileName string) {
	if c.fileBar != nil {
		c.processedFiles++
		c.fileBar.Add(1)
	}
}

// OnDiagnostic only counts; the analyzer already logs each one.
func (c *CLIProgressReporter) OnDiagnostic(d analyzer.Diagnostic) {
	c.degraded++
}

func (c *CLIProgressReporter) OnComplete(stats *analyzer.ProcessingStats) {
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "✓ Summary complete: %s files in %.1fs\n",
		formatNumber(stats.FilesProcessed), stats.ProcessingTime.Seconds())
	fmt.Fprintf(c.out, "  Directories: %s\n", formatNumber(stats.Directories))
	fmt.Fprintf(c.out, "  Doc files:   %s\n", formatNumber(stats.DocFiles))
	if stats.DegradedFiles > 0 {
		fmt.Fprintf(c.out, "  Degraded:    %s files, %d warnings above\n", formatNumber(stats.DegradedFiles), c.degraded)
	}
}

// formatNumber groups digits in thousands: 1234567 -> "1,234,567".
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result []byte
	for i := range len(str) {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}
	return string(result)
}
