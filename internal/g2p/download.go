package g2p

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Download fetches a g2p profile over HTTP and installs it at dest.
// The file is written to a temp path first and renamed into place so a
// partial download never shadows a good profile. Progress is printed to
// stdout.
func Download(url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("g2p: creating profile dir: %w", err)
	}

	// Check if already downloaded
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		fmt.Printf("  Profile already exists: %s\n", dest)
		return nil
	}

	fmt.Printf("  Downloading profile...\n")
	fmt.Printf("  URL: %s\n", url)
	fmt.Printf("  Destination: %s\n", dest)

	resp, err := http.Get(url) //nolint:gosec // URL is caller-provided by design
	if err != nil {
		return fmt.Errorf("g2p: downloading profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("g2p: download failed: HTTP %d", resp.StatusCode)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := dest + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("g2p: creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		total:  resp.ContentLength,
		label:  filepath.Base(dest),
	}

	written, err := io.Copy(pr, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("g2p: writing profile: %w", err)
	}

	fmt.Printf("\n  Downloaded %.1f KB\n", float64(written)/1024)

	// Reject files that don't parse before installing them.
	if _, err := Load(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("g2p: downloaded profile is invalid: %w", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("g2p: moving profile: %w", err)
	}

	return nil
}

// progressWriter prints download progress to stdout as data flows.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		fmt.Printf("\r  %s: %.0f%%", pw.label, float64(pw.written)/float64(pw.total)*100)
	} else {
		fmt.Printf("\r  %s: %.1f KB", pw.label, float64(pw.written)/1024)
	}
	return n, err
}
