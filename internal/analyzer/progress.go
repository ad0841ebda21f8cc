package analyzer

// ProgressReporter provides callbacks for reporting summarization progress.
// Implementations can display progress bars, log messages, or remain silent.
// The analyzer never calls a reporter from two goroutines at once.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(files, directories, docFiles int)

	// OnFileProcessingStart is called before reading and extracting files.
	OnFileProcessingStart(totalFiles int)

	// OnFileProcessed is called after each file is extracted.
	OnFileProcessed(fileName string)

	// OnDiagnostic is called for every degraded read or extraction.
	OnDiagnostic(d Diagnostic)

	// OnComplete is called when the summary has been built.
	OnComplete(stats *ProcessingStats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                                   {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(files, directories, docFiles int) {}
func (n *NoOpProgressReporter) OnFileProcessingStart(totalFiles int)                {}
func (n *NoOpProgressReporter) OnFileProcessed(fileName string)                     {}
func (n *NoOpProgressReporter) OnDiagnostic(d Diagnostic)                           {}
func (n *NoOpProgressReporter) OnComplete(stats *ProcessingStats)                   {}
