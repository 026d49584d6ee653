package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	apperrors "crop-dashboard/internal/common/errors"
	"crop-dashboard/internal/common/logger"
	"crop-dashboard/internal/common/metrics"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// CaptureSelector is the element of the report page that must be present
// before printing.
const CaptureSelector = "#pdfContent"

// DefaultFileName is the download name of the exported report.
const DefaultFileName = "crop_prediction_report.pdf"

// Renderer prints the page at a URL to PDF bytes.
type Renderer interface {
	RenderPDF(ctx context.Context, pageURL string) ([]byte, error)
}

type Config struct {
	ChromeBin string
	Headless  bool
	Timeout   time.Duration
}

// RodRenderer drives a headless Chrome per export.
type RodRenderer struct {
	config *Config
}

func NewRodRenderer(config *Config) *RodRenderer {
	return &RodRenderer{config: config}
}

func (r *RodRenderer) RenderPDF(ctx context.Context, pageURL string) ([]byte, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	l := launcher.New().Context(ctx).Headless(r.config.Headless)
	if r.config.ChromeBin != "" {
		l = l.Bin(r.config.ChromeBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}
	defer l.Cleanup()
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return nil, fmt.Errorf("open report page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for report page: %w", err)
	}
	if _, err := page.Element(CaptureSelector); err != nil {
		return nil, fmt.Errorf("find %s: %w", CaptureSelector, err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return data, nil
}

// Exporter captures a session's report page. Failures are logged and
// absorbed; callers only learn whether a document was produced.
type Exporter struct {
	renderer Renderer
	baseURL  string
	fileName string
	logger   logger.Logger
}

func NewExporter(renderer Renderer, baseURL, fileName string, log logger.Logger) *Exporter {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Exporter{
		renderer: renderer,
		baseURL:  baseURL,
		fileName: fileName,
		logger:   log.With(map[string]interface{}{"component": "export"}),
	}
}

// FileName is the name offered to the browser for the download.
func (e *Exporter) FileName() string {
	return e.fileName
}

// ReportURL is the address of the capturable report for a session.
func ReportURL(baseURL, sessionID, lang string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u = u.JoinPath("api", "sessions", sessionID, "report")
	if lang != "" {
		u.RawQuery = url.Values{"lang": []string{lang}}.Encode()
	}
	return u.String(), nil
}

// Export returns the PDF for a session, or ok=false if it could not be made.
func (e *Exporter) Export(ctx context.Context, sessionID, lang string) ([]byte, bool) {
	if e == nil || e.renderer == nil {
		return nil, false
	}
	pageURL, err := ReportURL(e.baseURL, sessionID, lang)
	if err != nil {
		e.fail(sessionID, err)
		return nil, false
	}

	data, err := e.renderer.RenderPDF(ctx, pageURL)
	if err != nil {
		e.fail(sessionID, err)
		return nil, false
	}
	if len(data) == 0 {
		e.fail(sessionID, errors.New("renderer returned an empty document"))
		return nil, false
	}

	metrics.PDFExports.WithLabelValues("success").Inc()
	e.logger.Info("report exported", map[string]interface{}{"sessionId": sessionID, "bytes": len(data)})
	return data, true
}

func (e *Exporter) fail(sessionID string, err error) {
	stdErr := apperrors.NewPDFExportFailedError(err)
	metrics.PDFExports.WithLabelValues("failure").Inc()
	e.logger.Error("pdf export failed", map[string]interface{}{
		"sessionId": sessionID,
		"errorCode": stdErr.Code,
		"error":     stdErr.Details,
	})
}
