package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Compound describes one record of a generated .ms file.
type Compound struct {
	Name       string
	Formula    string
	Ionization string
	ParentMass float64
	Index      int // written as >index when positive
	MS1        [][2]float64
	MS2        [][2]float64
}

// WriteSpectrumFile writes compounds to dir/name in the .ms text format and
// returns the path.
func WriteSpectrumFile(t testing.TB, dir, name string, compounds ...Compound) string {
	t.Helper()

	var b strings.Builder
	for i, c := range compounds {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, ">compound %s\n", c.Name)
		if c.Formula != "" {
			fmt.Fprintf(&b, ">formula %s\n", c.Formula)
		}
		if c.Ionization != "" {
			fmt.Fprintf(&b, ">ionization %s\n", c.Ionization)
		}
		if c.ParentMass > 0 {
			fmt.Fprintf(&b, ">parentmass %.6f\n", c.ParentMass)
		}
		if c.Index > 0 {
			fmt.Fprintf(&b, ">index %d\n", c.Index)
		}
		if len(c.MS1) > 0 {
			b.WriteString("\n>ms1\n")
			writePeaks(&b, c.MS1)
		}
		ms2 := c.MS2
		if len(ms2) == 0 {
			ms2 = [][2]float64{{c.ParentMass - 18.0106, 40}, {c.ParentMass, 100}}
		}
		b.WriteString("\n>ms2\n")
		writePeaks(&b, ms2)
	}

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func writePeaks(b *strings.Builder, peaks [][2]float64) {
	for _, p := range peaks {
		fmt.Fprintf(b, "%.6f %.2f\n", p[0], p[1])
	}
}
