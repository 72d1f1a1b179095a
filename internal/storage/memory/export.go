package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/blasternet/combatsync/internal/storage/memory/export/v1"
	"github.com/blasternet/combatsync/pkg/core"
)

var fileNameReplacer = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

// exportName is <level>_<start UTC>.json, with .gz when compressed.
func exportName(m core.Match, compress bool) string {
	level := fileNameReplacer.Replace(m.Level)
	if level == "" {
		level = "match"
	}
	name := level + "_" + m.StartTime.UTC().Format("20060102_150405") + ".json"
	if compress {
		name += ".gz"
	}
	return name
}

// exportJSON writes the recorded match to OutputDir and remembers the file
// for upload.
func (b *Backend) exportJSON() error {
	export := v1.Build(b.snapshot())

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(b.cfg.OutputDir, exportName(*b.match, b.cfg.CompressOutput))
	if err := writeExport(path, export, b.cfg.CompressOutput); err != nil {
		return err
	}

	b.lastExportPath = path
	b.lastExportMeta = core.UploadMetadata{
		Level:         b.match.Level,
		MatchKey:      b.match.Key,
		MatchDuration: export.DurationSeconds,
		Tag:           b.tag,
	}
	return nil
}

// writeExport encodes data beside path and renames it into place once the
// file is complete.
func writeExport(path string, data v1.Export, compress bool) (err error) {
	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	var w io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		w = gz
	}
	encErr := json.NewEncoder(w).Encode(data)
	if gz != nil {
		encErr = errors.Join(encErr, gz.Close())
	}
	if err := errors.Join(encErr, f.Close()); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}
