// Command gen-curves generates a synthetic force-volume measurement and
// writes it to a session folder: the raw curves as measurement JSON, the
// corrected channels as text and JSON exports, and PNG plots.
package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/2Puck/sofa/internal/forcevolume"
	"github.com/2Puck/sofa/internal/forcevolume/plot"
	"github.com/2Puck/sofa/internal/fsutil"
	"github.com/2Puck/sofa/internal/security"
)

func main() {
	name := flag.String("name", "", "Measurement name (default synthetic-<rows>x<cols>)")
	out := flag.String("o", ".", "Base directory for the session folder")
	rows := flag.Int("rows", 4, "Grid rows")
	cols := flag.Int("cols", 4, "Grid cols")
	noise := flag.Float64("noise", 0, "Deflection noise sigma in metres")
	virtualDeflection := flag.Float64("virtual-deflection", 0, "Baseline tilt slope imitating optical crosstalk")
	topography := flag.Float64("topography", 0, "Piezo offset between the first and last row in metres")
	seed := flag.Int64("seed", 1, "Noise seed")
	z0 := flag.Float64("z0", -30e-9, "Ramp start position in metres (must be negative)")
	step := flag.Float64("step", 0.2e-9, "Piezo step size in metres")
	maxDeflection := flag.Float64("max-deflection", 30e-9, "Deflection at which the ramp turns around, in metres")
	flag.Parse()

	sweep := forcevolume.SweepParams{
		StartPosition: *z0,
		StepSize:      *step,
		MaxDeflection: *maxDeflection,
	}
	m, err := forcevolume.GenerateMeasurement(forcevolume.DefaultMaterialParams(), sweep, forcevolume.SyntheticParams{
		Rows:              *rows,
		Cols:              *cols,
		Noise:             *noise,
		VirtualDeflection: *virtualDeflection,
		Topography:        *topography,
		Seed:              *seed,
	})
	if err != nil {
		log.Fatalf("failed to generate measurement: %v", err)
	}
	if *name != "" {
		m.Name = *name
	}
	log.Printf("generated %q: %d curves of %d samples each", m.Name, len(m.Curves), len(m.Curves[0].X))

	fsys := fsutil.OSFileSystem{}
	dir, err := forcevolume.CreateSessionFolder(fsys, *out, m.Name)
	if err != nil {
		log.Fatalf("failed to create session folder: %v", err)
	}
	if err := security.ValidatePathWithinDirectory(dir, *out); err != nil {
		log.Fatalf("refusing to write session folder: %v", err)
	}

	f, err := fsys.Create(filepath.Join(dir, "measurement.json"))
	if err != nil {
		log.Fatalf("failed to create measurement file: %v", err)
	}
	if err := forcevolume.WriteMeasurementJSON(f, m); err != nil {
		f.Close()
		log.Fatalf("failed to write measurement: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("failed to close measurement file: %v", err)
	}

	vol, skipped, err := forcevolume.Import(m)
	if err != nil {
		log.Fatalf("failed to import measurement: %v", err)
	}
	if skipped > 0 {
		log.Printf("%d malformed curves left as artifacts", skipped)
	}
	if err := forcevolume.ExportDir(fsys, dir, vol); err != nil {
		log.Fatalf("failed to export channel data: %v", err)
	}

	renderer, err := plot.NewRenderer(filepath.Join(dir, "plots"))
	if err != nil {
		log.Fatalf("failed to create plot dir: %v", err)
	}
	n, err := renderer.RenderAll(vol)
	if err != nil {
		log.Fatalf("failed to render plots: %v", err)
	}
	log.Printf("rendered %d plots", n)

	log.Printf("✓ Created: %s", dir)
}
