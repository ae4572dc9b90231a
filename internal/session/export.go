package session

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
)

const sessionsEntry = "sessions.ndjson"

// ExportZip writes the session log at logPath into a zip archive as
// sessions.ndjson. A missing log produces an empty archive.
func ExportZip(w io.Writer, logPath string) error {
	zw := zip.NewWriter(w)

	if err := addFile(zw, logPath, sessionsEntry); err != nil {
		zw.Close()
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish study archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	entry, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", name, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("failed to copy %s into archive: %w", name, err)
	}
	return nil
}
