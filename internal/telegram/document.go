package telegram

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"hikari/internal/progress"
)

// Document describes one file upload. Progress, when set, receives upload
// samples as bytes leave the reader.
type Document struct {
	ChatID   int64
	Path     string
	FileName string
	Caption  string
	Progress progress.Sink
}

// SendDocument streams a file from disk as a multipart upload. The whole
// file is never held in memory.
func (c *Client) SendDocument(ctx context.Context, doc Document) (*Message, error) {
	file, err := os.Open(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", err)
	}
	fileName := doc.FileName
	if fileName == "" {
		fileName = filepath.Base(doc.Path)
	}

	tracker := progress.NewTracker(progress.PhaseUpload, info.Size())
	sink := doc.Progress
	if sink == nil {
		sink = func(progress.Sample) {}
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		err := writeDocumentForm(writer, doc, fileName, file, func(written int64) {
			sink(tracker.Sample(written))
		})
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendDocument"), pr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("telegram sendDocument (latency=%v): %w", latency, ctx.Err())
		}
		return nil, fmt.Errorf("telegram sendDocument (latency=%v): %w", latency, scrubToken(err, c.token))
	}
	defer resp.Body.Close()

	var msg Message
	if err := decodeResponse(resp, "sendDocument", latency, &msg); err != nil {
		return nil, err
	}
	sink(tracker.Complete(info.Size()))
	return &msg, nil
}

func writeDocumentForm(writer *multipart.Writer, doc Document, fileName string, file io.Reader, onWrite func(int64)) error {
	if err := writer.WriteField("chat_id", strconv.FormatInt(doc.ChatID, 10)); err != nil {
		return fmt.Errorf("write chat_id field: %w", err)
	}
	if doc.Caption != "" {
		if err := writer.WriteField("caption", doc.Caption); err != nil {
			return fmt.Errorf("write caption field: %w", err)
		}
	}
	part, err := writer.CreateFormFile("document", fileName)
	if err != nil {
		return fmt.Errorf("create document part: %w", err)
	}
	counter := &countingReader{reader: file, onWrite: onWrite}
	if _, err := io.Copy(part, counter); err != nil {
		return fmt.Errorf("stream document: %w", err)
	}
	return nil
}

// countingReader reports the cumulative byte count after every read.
type countingReader struct {
	reader  io.Reader
	written int64
	onWrite func(int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	if n > 0 {
		c.written += int64(n)
		if c.onWrite != nil {
			c.onWrite(c.written)
		}
	}
	return n, err
}
