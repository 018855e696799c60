package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/request"
)

const defaultPDFName = "itinerary.pdf"

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// ToggleVoice flips the voice flag at once and reverts it if the server refuses.
func (e *Engine) ToggleVoice() {
	if e.voice != nil {
		return
	}
	prev := e.state.VoiceEnabled()
	next := !prev
	e.state.SetVoiceEnabled(next)

	var h *request.Handle
	h = e.requests.Start(domain.RequestVoice, func(ctx context.Context) (any, error) {
		return nil, e.backend.ToggleVoice(ctx, next)
	}, func(res request.Result) {
		if e.voice != h {
			return
		}
		e.voice = nil
		if res.Outcome != domain.OutcomeOK {
			e.logger.Warn("Voice toggle failed", "enabled", next, "err", res.Err)
			e.notes.Error(MsgVoiceFailed)
			e.state.SetVoiceEnabled(prev)
			e.persist()
			return
		}
		if next {
			e.notes.Success(MsgVoiceOn)
		} else {
			e.notes.Info(MsgVoiceOff)
		}
		e.persist()
	})
	e.voice = h
}

// Download saves the generated itinerary PDF into the download directory.
func (e *Engine) Download() bool {
	file := e.state.PDFFile()
	if file == "" {
		e.notes.Warning(MsgNothingToExport)
		return false
	}
	if e.download != nil {
		return false
	}
	e.notes.Success(MsgDownloading)

	dir := e.downloadDir
	var h *request.Handle
	h = e.requests.Start(domain.RequestDownload, func(ctx context.Context) (any, error) {
		return e.fetchPDF(ctx, dir, file)
	}, func(res request.Result) {
		if e.download != h {
			return
		}
		e.download = nil
		if res.Outcome != domain.OutcomeOK {
			e.logger.Warn("Download failed", "pdf_file", file, "err", res.Err)
			e.notes.Error(MsgDownloadFailed)
			return
		}
		e.logger.Info("Itinerary saved", "path", res.Value)
	})
	e.download = h
	return true
}

// fetchPDF streams the file into dir through a temporary file. It runs off the loop.
func (e *Engine) fetchPDF(ctx context.Context, dir, file string) (string, error) {
	body, err := e.backend.Download(ctx, file)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "tmp-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	dst := filepath.Join(dir, LocalFilename(file))
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("failed to save download: %w", err)
	}
	return dst, nil
}

// LocalFilename keeps only [A-Za-z0-9_.-] of name; an empty or dot-only result becomes itinerary.pdf.
func LocalFilename(name string) string {
	clean := unsafeName.ReplaceAllString(filepath.Base(name), "")
	if clean == "" || clean == "." || clean == ".." {
		return defaultPDFName
	}
	return clean
}
