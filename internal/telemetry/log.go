package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"hush/internal/logging"
)

// NoError is the sentinel recorded in the error column of successful jobs.
const NoError = "無"

// Recorded status values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// reportZone is the fixed offset used for record timestamps regardless of the
// host timezone, matching where the service's users are.
var reportZone = time.FixedZone("UTC+8", 8*60*60)

// utf8BOM decodes and encodes the byte-order marker that keeps the CSV
// directly openable in spreadsheet tools.
var utf8BOM = unicode.UTF8BOM

// header is written exactly once, when the log file is first created.
var header = []string{
	"時間", "使用者", "來源", "檔案名稱", "媒體類型",
	"檔案大小(MB)", "降噪強度(dB)", "處理時長(秒)", "狀態", "錯誤訊息",
}

// Record is one row of the usage log.
type Record struct {
	Timestamp     time.Time
	UserLabel     string
	SourceType    string
	OriginalName  string
	MediaType     string
	FileSizeMB    float64
	AttenuationDB int
	DurationSecs  float64
	Status        string
	ErrorText     string
}

// Log appends structured usage records to a CSV file. All write failures are
// reported to the caller, who is expected to discard them; the telemetry
// boundary never fails a job.
type Log struct {
	path   string
	user   string
	logger *slog.Logger

	mu          sync.Mutex
	headerKnown bool
}

// New builds a usage log writing to path, stamping records with userLabel.
func New(path, userLabel string, logger *slog.Logger) *Log {
	return &Log{
		path:   path,
		user:   userLabel,
		logger: logging.NewComponentLogger(logger, "telemetry"),
	}
}

// Append writes one record, creating the file with a header row on first use.
// The returned error is informational; a failed append never fails the job.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	needHeader := false
	if !l.headerKnown {
		if _, err := os.Stat(l.path); errors.Is(err, os.ErrNotExist) {
			needHeader = true
		}
		l.headerKnown = true
	}

	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure telemetry directory: %w", err)
		}
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open telemetry log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if needHeader {
		// The BOM rides on the first bytes of the file, ahead of the header.
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	if rec.UserLabel == "" {
		rec.UserLabel = l.user
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if err := writer.Write(rec.row()); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

// Record appends a row for a finished job. Write failures are logged and
// swallowed so a telemetry problem never reaches the job.
func (l *Log) Record(rec Record) {
	if err := l.Append(rec); err != nil {
		l.logger.Warn("telemetry write failed", logging.Error(err))
	}
}

// ReadAll returns every record in the log, oldest first, without the header
// row. A missing file or any read failure yields an empty slice: telemetry
// reads are best-effort and never propagate errors.
func (l *Log) ReadAll() [][]string {
	file, err := os.Open(l.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	// Strip the BOM if present so the first header cell parses cleanly.
	decoded := transform.NewReader(file, utf8BOM.NewDecoder())
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil
	}
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == header[0] {
		rows = rows[1:]
	}
	return rows
}

// ReadRaw returns the file contents verbatim, BOM included, for export. Any
// failure yields an empty string.
func (l *Log) ReadRaw() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return ""
	}
	return string(data)
}

// Header returns a copy of the column names for presentation layers.
func Header() []string {
	cp := make([]string, len(header))
	copy(cp, header)
	return cp
}

func (r Record) row() []string {
	return []string{
		r.Timestamp.In(reportZone).Format("2006-01-02 15:04:05"),
		r.UserLabel,
		r.SourceType,
		r.OriginalName,
		r.MediaType,
		strconv.FormatFloat(r.FileSizeMB, 'f', 2, 64),
		strconv.Itoa(r.AttenuationDB),
		strconv.FormatFloat(r.DurationSecs, 'f', 1, 64),
		r.Status,
		r.ErrorText,
	}
}
