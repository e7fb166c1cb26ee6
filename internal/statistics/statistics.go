package statistics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"imageconvert/internal/converter"
)

// Statistics collects counters for one conversion job. It implements
// converter.Observer and may be read from other goroutines while the job runs.
type Statistics struct {
	TotalFilesFound int64
	FilesConverted  int64
	FilesFlattened  int64
	FilesDeleted    int64
	DeletionErrors  int64

	BytesRead    int64
	BytesWritten int64

	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	FilesPerSecond   float64
	CompressionRatio float64

	Aborted bool
	Errors  []StatError

	// FormatStats counts converted files per detected source format.
	FormatStats map[string]int64

	mutex sync.RWMutex
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string    `json:"file_path"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is a point-in-time copy of the statistics, safe to serialize.
type Summary struct {
	TotalFilesFound  int64            `json:"total_files_found"`
	FilesConverted   int64            `json:"files_converted"`
	FilesFlattened   int64            `json:"files_flattened"`
	FilesDeleted     int64            `json:"files_deleted"`
	DeletionErrors   int64            `json:"deletion_errors"`
	BytesRead        int64            `json:"bytes_read"`
	BytesWritten     int64            `json:"bytes_written"`
	Duration         string           `json:"duration"`
	FilesPerSecond   float64          `json:"files_per_second"`
	CompressionRatio float64          `json:"compression_ratio"`
	Aborted          bool             `json:"aborted"`
	Formats          map[string]int64 `json:"formats"`
	Errors           []StatError      `json:"errors"`
}

var _ converter.Observer = (*Statistics)(nil)

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime:   time.Now(),
		FormatStats: make(map[string]int64),
		Errors:      make([]StatError, 0),
	}
}

// ConversionStarted records the number of matched files and restarts the clock.
func (s *Statistics) ConversionStarted(total int) {
	atomic.StoreInt64(&s.TotalFilesFound, int64(total))
	s.mutex.Lock()
	s.StartTime = time.Now()
	s.mutex.Unlock()
}

// FileConverted records one converted file.
func (s *Statistics) FileConverted(c converter.Conversion) {
	atomic.AddInt64(&s.FilesConverted, 1)
	atomic.AddInt64(&s.BytesRead, c.SourceSize)
	atomic.AddInt64(&s.BytesWritten, c.TargetSize)
	if c.Flattened {
		atomic.AddInt64(&s.FilesFlattened, 1)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.FormatStats[string(c.SourceFormat)]++
}

// ConversionAborted records the error that stopped the run.
func (s *Statistics) ConversionAborted(path string, err error) {
	s.mutex.Lock()
	s.Aborted = true
	s.mutex.Unlock()
	s.AddError(path, "convert", err.Error())
}

// FileDeleted records one removed file.
func (s *Statistics) FileDeleted(string) {
	atomic.AddInt64(&s.FilesDeleted, 1)
}

// DeletionFailed records the error that stopped a deletion pass.
func (s *Statistics) DeletionFailed(path string, err error) {
	atomic.AddInt64(&s.DeletionErrors, 1)
	s.AddError(path, "delete", err.Error())
}

// Finalize calculates duration, throughput and the size ratio.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	converted := atomic.LoadInt64(&s.FilesConverted)
	if s.Duration.Seconds() > 0 {
		s.FilesPerSecond = float64(converted) / s.Duration.Seconds()
	}

	if read := atomic.LoadInt64(&s.BytesRead); read > 0 {
		s.CompressionRatio = float64(atomic.LoadInt64(&s.BytesWritten)) / float64(read)
	}
}

// AddError records an error that occurred during processing.
func (s *Statistics) AddError(filePath, operation, errorMsg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// Snapshot returns a copy of the current counters.
func (s *Statistics) Snapshot() Summary {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	formats := make(map[string]int64, len(s.FormatStats))
	for k, v := range s.FormatStats {
		formats[k] = v
	}

	return Summary{
		TotalFilesFound:  atomic.LoadInt64(&s.TotalFilesFound),
		FilesConverted:   atomic.LoadInt64(&s.FilesConverted),
		FilesFlattened:   atomic.LoadInt64(&s.FilesFlattened),
		FilesDeleted:     atomic.LoadInt64(&s.FilesDeleted),
		DeletionErrors:   atomic.LoadInt64(&s.DeletionErrors),
		BytesRead:        atomic.LoadInt64(&s.BytesRead),
		BytesWritten:     atomic.LoadInt64(&s.BytesWritten),
		Duration:         s.Duration.String(),
		FilesPerSecond:   s.FilesPerSecond,
		CompressionRatio: s.CompressionRatio,
		Aborted:          s.Aborted,
		Formats:          formats,
		Errors:           append([]StatError(nil), s.Errors...),
	}
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	sum := s.Snapshot()
	return fmt.Sprintf(`Image Conversion Statistics Summary:

Files:
		Matched: %d
		Converted: %d
		Alpha Flattened: %d
		Deleted: %d
		Deletion Errors: %d

Size:
		Read: %s
		Written: %s
		Ratio: %.1f%%

Performance:
		Duration: %s
		Files/Second: %.2f`,
		sum.TotalFilesFound,
		sum.FilesConverted,
		sum.FilesFlattened,
		sum.FilesDeleted,
		sum.DeletionErrors,
		FormatBytes(sum.BytesRead),
		FormatBytes(sum.BytesWritten),
		sum.CompressionRatio*100,
		sum.Duration,
		sum.FilesPerSecond)
}

// GetFormatBreakdown returns a formatted breakdown of source formats converted.
func (s *Statistics) GetFormatBreakdown() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.FormatStats) == 0 {
		return "No format statistics available"
	}

	formats := make([]string, 0, len(s.FormatStats))
	for f := range s.FormatStats {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	var b strings.Builder
	b.WriteString("Source Format Breakdown:\n")
	for _, f := range formats {
		fmt.Fprintf(&b, "  %s: %d\n", f, s.FormatStats[f])
	}
	return b.String()
}

// GetErrorSummary returns a summary of errors that occurred during processing.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return result
}

// FormatBytes returns a human-readable string for a byte count.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
