package uploader

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/nao1215/csvupload/internal/model"
)

const (
	// FieldName is the multipart field carrying the file.
	FieldName = "file"

	// UploadPath is the endpoint path on the server.
	UploadPath = "/upload"

	// maxResponseSize caps how much of the response body is read.
	maxResponseSize = 10 * 1024 * 1024
)

// File is a selected file. It is referenced, not copied: Open is called once
// per upload and the returned reader is closed before Upload returns.
type File interface {
	// Name is the file name sent in the multipart part.
	Name() string

	// Open returns the file content.
	Open() (io.ReadCloser, error)
}

// FileSource supplies the currently selected file.
type FileSource interface {
	// Selected returns the selected file, or false when nothing is selected.
	Selected() (File, bool)
}

// DisplaySink receives the rendered result of a successful upload.
type DisplaySink interface {
	Show(d model.Display) error
}

// Notifier shows a short message to the user.
type Notifier interface {
	Alert(message string)
}

// Result describes one upload attempt.
type Result struct {
	// FileName is the name of the uploaded file.
	FileName string

	// Size is the number of content bytes sent.
	Size int64

	// Digest is the hex SHA3-256 of the content.
	Digest string

	// Endpoint is the URL the file was posted to.
	Endpoint string

	// StatusCode is the HTTP status, zero when no response arrived.
	StatusCode int

	// Response is the decoded body. Nil on failure.
	Response *model.UploadResponse

	// Display is what was written to the sink. Zero on failure.
	Display model.Display

	// Elapsed is the time from opening the file to rendering the result.
	Elapsed time.Duration
}

// Outcome pairs a Result with the error of the same attempt.
type Outcome struct {
	Result *Result
	Err    error
}

// Observer is called after every attempt that got past the file check.
// It runs on the goroutine that performed the upload.
type Observer func(Outcome)

// Uploader posts files to {server}/upload and renders the response.
type Uploader struct {
	endpoint  string
	client    *http.Client
	source    FileSource
	sink      DisplaySink
	notifier  Notifier
	logger    *slog.Logger
	observers []Observer

	// renderMu serializes sink writes so concurrent invocations never
	// interleave; the last one to resolve wins.
	renderMu sync.Mutex
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithHTTPClient sets the HTTP client. The default is a client with no timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(u *Uploader) {
		if client != nil {
			u.client = client
		}
	}
}

// WithLogger sets the diagnostic logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithObserver registers a callback for finished attempts.
func WithObserver(observer Observer) Option {
	return func(u *Uploader) {
		if observer != nil {
			u.observers = append(u.observers, observer)
		}
	}
}

// New creates an Uploader posting to serverURL + "/upload".
// serverURL must be an absolute http or https URL; a trailing slash is ignored.
func New(serverURL string, source FileSource, sink DisplaySink, notifier Notifier, opts ...Option) (*Uploader, error) {
	endpoint, err := EndpointURL(serverURL)
	if err != nil {
		return nil, err
	}
	if source == nil || sink == nil || notifier == nil {
		return nil, ErrMissingCollaborator
	}

	u := &Uploader{
		endpoint: endpoint,
		client:   &http.Client{},
		source:   source,
		sink:     sink,
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	return u, nil
}

// EndpointURL returns serverURL joined with UploadPath.
func EndpointURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidServerURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidServerURL, serverURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + UploadPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Endpoint returns the URL files are posted to.
func (u *Uploader) Endpoint() string {
	return u.endpoint
}

// Upload performs one invocation and blocks until it is finished.
//
// It returns ErrNoFileSelected without sending anything when the source has
// no file. Every later failure is alerted, logged and returned wrapped in
// ErrUploadFailed; the returned Result is then still non-nil and carries
// what is known about the attempt.
func (u *Uploader) Upload(ctx context.Context) (*Result, error) {
	file, ok := u.source.Selected()
	if !ok || file == nil {
		u.notifier.Alert(MessageNoFile)
		return nil, ErrNoFileSelected
	}

	result, err := u.send(ctx, file)
	if err != nil {
		u.notifier.Alert(MessageUploadFailed)
		u.logger.Error("upload failed",
			"file", result.FileName,
			"endpoint", u.endpoint,
			"status", result.StatusCode,
			"error", err,
		)
		err = fmt.Errorf("%w: %w", ErrUploadFailed, err)
	} else {
		u.logger.Debug("upload rendered",
			"file", result.FileName,
			"bytes", result.Size,
			"histogram", result.Display.HistogramPath,
			"heatmap", result.Display.HeatmapPath,
			"elapsed", result.Elapsed,
		)
	}

	u.notify(Outcome{Result: result, Err: err})
	return result, err
}

// Trigger starts one invocation in the background and returns immediately.
// The channel receives the outcome once and is then closed.
// Concurrent triggers are independent of each other.
func (u *Uploader) Trigger(ctx context.Context) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		result, err := u.Upload(ctx)
		ch <- Outcome{Result: result, Err: err}
	}()
	return ch
}

// send runs steps 2-5 of the contract. It always returns a non-nil Result.
func (u *Uploader) send(ctx context.Context, file File) (*Result, error) {
	start := time.Now()
	result := &Result{
		FileName: file.Name(),
		Endpoint: u.endpoint,
	}

	body, contentType, err := u.buildBody(file, result)
	if err != nil {
		return result, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, body)
	if err != nil {
		return result, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	u.logger.Debug("posting file",
		"file", result.FileName,
		"bytes", result.Size,
		"endpoint", u.endpoint,
	)

	resp, err := u.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	result.StatusCode = resp.StatusCode

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return result, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Detail:     describeBody(resp.Header.Get("Content-Type"), payload),
		}
	}

	decoded, err := model.DecodeUploadResponse(payload)
	if err != nil {
		return result, fmt.Errorf("%w: %w (%s)", ErrDecodeResponse, err,
			describeBody(resp.Header.Get("Content-Type"), payload))
	}
	display, err := decoded.Display()
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}

	if err := u.render(display); err != nil {
		return result, fmt.Errorf("failed to render result: %w", err)
	}

	result.Response = decoded
	result.Display = display
	result.Elapsed = time.Since(start)
	return result, nil
}

// buildBody encodes the file as multipart/form-data under FieldName.
// Size and digest are recorded on result as the content is copied.
func (u *Uploader) buildBody(file File, result *Result) (io.Reader, string, error) {
	content, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", result.FileName, err)
	}
	defer content.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(FieldName, result.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}

	hasher := sha3.New256()
	n, err := io.Copy(io.MultiWriter(part, hasher), content)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", result.FileName, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form body: %w", err)
	}

	result.Size = n
	result.Digest = hex.EncodeToString(hasher.Sum(nil))
	return &buf, mw.FormDataContentType(), nil
}

func (u *Uploader) render(d model.Display) error {
	u.renderMu.Lock()
	defer u.renderMu.Unlock()
	return u.sink.Show(d)
}

func (u *Uploader) notify(outcome Outcome) {
	for _, observer := range u.observers {
		observer(outcome)
	}
}
