// Package source loads the raw CSV tables behind the fact table, either from a
// data directory or from the seed copies embedded in the binary.
package source

import (
	"context"
	"embed"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cervejazero/internal/fetcher"
)

//go:embed seed/*.csv
var seedFS embed.FS

// Seed returns the embedded seed tables.
func Seed() fs.FS {
	sub, err := fs.Sub(seedFS, "seed")
	if err != nil {
		panic(err) // embed layout is fixed at compile time
	}
	return sub
}

// Dir returns the tables under dir, or the embedded seed tables when dir is
// empty.
func Dir(dir string) fs.FS {
	if dir == "" {
		return Seed()
	}
	return os.DirFS(dir)
}

// Loader reads every table of a registry from a filesystem.
type Loader struct {
	fsys fs.FS
	reg  *Registry
}

// NewLoader creates a loader. A nil registry means DefaultRegistry.
func NewLoader(fsys fs.FS, reg *Registry) *Loader {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Loader{fsys: fsys, reg: reg}
}

// Load reads all registered tables. A missing file, an unreadable file or a
// missing required column is fatal and aborts the load.
func (l *Loader) Load(ctx context.Context) (Tables, error) {
	log := zap.L().With(zap.String("component", "source"))
	out := make(Tables, len(l.reg.order))

	for _, spec := range l.reg.Specs() {
		t, err := l.loadOne(ctx, spec)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = t
		log.Debug("loaded table",
			zap.String("table", string(spec.Name)),
			zap.String("file", spec.File),
			zap.Int("rows", t.Len()),
		)
	}
	return out, nil
}

func (l *Loader) loadOne(ctx context.Context, spec Spec) (*Table, error) {
	f, err := l.fsys.Open(spec.File)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open %s", spec.File)
	}
	defer f.Close() //nolint:errcheck

	header, rows, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", spec.File)
	}

	t := NewTable(spec.Name, header, rows)
	for _, col := range spec.Required {
		if !t.Has(col) {
			return nil, eris.Errorf("source: %s missing required column %q", spec.File, col)
		}
	}
	return t, nil
}
