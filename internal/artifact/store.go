package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sparcflow/internal/safeio"
)

// PersistResult lists what Persist wrote and what it left alone.
type PersistResult struct {
	Written []Name
	Skipped []Name
}

// Persist writes every document of set under root. Existing files are never
// replaced; they are reported as skipped and stay byte-identical.
func Persist(root *safeio.SafeFS, set *Set, log *slog.Logger) (PersistResult, error) {
	if log == nil {
		log = slog.Default()
	}
	var res PersistResult
	for _, n := range set.Names() {
		content, _ := set.Get(n)
		wrote, err := root.WriteOnce(string(n), []byte(content))
		if err != nil {
			return res, fmt.Errorf("persist %s: %w", n, err)
		}
		if !wrote {
			log.Info("document exists, skipping", "document", string(n))
			res.Skipped = append(res.Skipped, n)
			continue
		}
		log.Info("document written", "document", string(n), "bytes", len(content))
		res.Written = append(res.Written, n)
	}
	return res, nil
}

// LoadExisting returns the fixed documents already present under root, so a
// resumed run can reuse them instead of asking the model again.
func LoadExisting(root *safeio.SafeFS) (map[Name]string, error) {
	out := map[Name]string{}
	for _, n := range Documents {
		b, err := root.ReadFile(string(n))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", n, err)
		}
		out[n] = string(b)
	}
	return out, nil
}

// ImportResult summarizes an Import call.
type ImportResult struct {
	Imported []string
	Skipped  []string
	Failed   []string
}

// Import copies the *.md files of src into dst. Files already in dst are
// skipped unless force is set. Per-file failures are collected, not returned.
func Import(src string, dst *safeio.SafeFS, force bool, log *slog.Logger) (ImportResult, error) {
	if log == nil {
		log = slog.Default()
	}
	var res ImportResult
	info, err := os.Stat(src)
	if err != nil {
		return res, fmt.Errorf("import path %s: %w", src, err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("import path %s is not a directory", src)
	}
	matches, err := filepath.Glob(filepath.Join(src, "*.md"))
	if err != nil {
		return res, err
	}
	sort.Strings(matches)
	for _, m := range matches {
		name := filepath.Base(m)
		b, err := os.ReadFile(m)
		if err != nil {
			log.Error("failed to import document", "file", name, "error", err)
			res.Failed = append(res.Failed, name)
			continue
		}
		if force {
			target, err := dst.Path(name)
			if err == nil {
				err = os.WriteFile(target, b, 0o644)
			}
			if err != nil {
				log.Error("failed to import document", "file", name, "error", err)
				res.Failed = append(res.Failed, name)
				continue
			}
			res.Imported = append(res.Imported, name)
			continue
		}
		wrote, err := dst.WriteOnce(name, b)
		switch {
		case err != nil:
			log.Error("failed to import document", "file", name, "error", err)
			res.Failed = append(res.Failed, name)
		case !wrote:
			log.Warn("document already exists, use --force to overwrite", "file", name)
			res.Skipped = append(res.Skipped, name)
		default:
			log.Info("imported document", "file", name)
			res.Imported = append(res.Imported, name)
		}
	}
	return res, nil
}

// ImportedContext concatenates every *.md under root as prompt context.
func ImportedContext(root *safeio.SafeFS) (string, error) {
	entries, err := root.ReadDir(".")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		data, err := root.ReadFile(e.Name())
		if err != nil {
			return "", fmt.Errorf("read %s: %w", e.Name(), err)
		}
		fmt.Fprintf(&b, "\n\n# Content from %s\n%s", e.Name(), data)
	}
	return b.String(), nil
}
