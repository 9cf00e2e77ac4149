// Package translate runs the conversion of raw mass-spectrometry files into chromatograms
// in the background. The conversion itself is done by an external translator.
package translate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Defaults of a translation job
const (
	DefaultFormat     = "mzXML"
	DefaultMaxPieceMB = 500
)

// Job describes one file to translate
type Job struct {
	Path   string
	Format string
	Pieces int // number of pieces the file is split into to bound memory use
}

// Translator converts a raw file into chromatograms
type Translator interface {
	Translate(ctx context.Context, job Job) error
}

// Pieces returns how many pieces of at most maxPieceMB a file is translated in
func Pieces(path string, maxPieceMB int64) (int, error) {
	if maxPieceMB <= 0 {
		return 0, fmt.Errorf("invalid maximum piece size %d MB", maxPieceMB)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return int(info.Size()/(maxPieceMB*1024*1024)) + 1, nil
}

// ExecTranslator runs an external command. The placeholders {file}, {format} and {pieces}
// in Command are replaced per argument; no shell is involved.
type ExecTranslator struct {
	Command string
}

// Args expands the command line for a job
func (t *ExecTranslator) Args(job Job) []string {
	replacer := strings.NewReplacer(
		"{file}", job.Path,
		"{format}", job.Format,
		"{pieces}", strconv.Itoa(job.Pieces),
	)
	fields := strings.Fields(t.Command)
	for i, f := range fields {
		fields[i] = replacer.Replace(f)
	}
	return fields
}

// Translate runs the command and returns its output on failure
func (t *ExecTranslator) Translate(ctx context.Context, job Job) error {
	args := t.Args(job)
	if len(args) == 0 {
		return fmt.Errorf("no translation command configured")
	}
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}
