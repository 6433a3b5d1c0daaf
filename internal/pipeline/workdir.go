package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const (
	timestampLayout = "20060102_150405"
	slugLen         = 30
	maxDirSuffix    = 1000
)

// Slug joins the description words with hyphens and keeps the first 30
// runes. Characters that are unsafe in a directory name become hyphens.
func Slug(description string) string {
	joined := strings.Join(strings.Fields(description), "-")
	var b strings.Builder
	n := 0
	for _, r := range joined {
		if n == slugLen {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
		n++
	}
	return strings.Trim(b.String(), ".")
}

// DirName is "<prefix>_<YYYYmmdd_HHMMSS>[_<suffix>]".
func DirName(prefix string, ts time.Time, suffix string) string {
	name := prefix + "_" + ts.Format(timestampLayout)
	if suffix != "" {
		name += "_" + suffix
	}
	return name
}

// freshDir creates a new directory under base and never returns one that
// already existed; a collision gets a numeric suffix.
func freshDir(base, name string) (string, error) {
	if base == "" {
		base = "."
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("create base dir %s: %w", base, err)
	}
	for i := 1; i <= maxDirSuffix; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s_%d", name, i)
		}
		p := filepath.Join(base, candidate)
		err := os.Mkdir(p, 0o755)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("create %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("no free directory name for %s under %s", name, base)
}
