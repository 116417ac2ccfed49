// Package scenario enumerates writeback scenarios, drives the verification
// protocol over them one at a time, and classifies each result against the
// scenario's expected outcome.
package scenario

import (
	"fmt"
	"regexp"

	"github.com/mesh-intelligence/wbverify/internal/fixtures"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// Kind selects which protocol check a scenario runs.
type Kind string

// Scenario kinds.
const (
	KindScalar Kind = "scalar"
	KindTag    Kind = "tag"
)

// Scenario is one (file, property) cell of the suite.
type Scenario struct {
	ID       string
	File     types.TestFile
	Kind     Kind
	Property types.Property // unused for KindTag
	Expected types.ExpectedOutcome
}

// Subject names what the scenario writes, for listings and logs.
func (s Scenario) Subject() string {
	if s.Kind == KindTag {
		return "nao:hasTag"
	}
	return s.Property.Name
}

// Fixture directories, relative to the base directory.
const (
	MonitoredDir   = fixtures.MonitoredDir
	UnmonitoredDir = fixtures.UnmonitoredDir
)

// DefectPNGWriteback is the tracked defect behind the failing PNG
// scenarios.
const DefectPNGWriteback = "NB#185070"

type fileGroup struct {
	base      int
	format    string
	name      string
	mediaType string
	// expected returns the expected outcome for the nth check of the group
	// (0 title, 1 description, 2 keyword, 3 tag).
	expected func(n int) types.ExpectedOutcome
}

func alwaysNormal(int) types.ExpectedOutcome { return types.Normal() }

var defaultGroups = []fileGroup{
	{1, "jpeg", "writeback-test-1.jpeg", types.MediaJPEG, alwaysNormal},
	{11, "tiff", "writeback-test-2.tif", types.MediaTIFF, alwaysNormal},
	{21, "png", "writeback-test-4.png", types.MediaPNG, func(n int) types.ExpectedOutcome {
		// Title writeback works for PNG; everything else does not yet.
		if n == 0 {
			return types.Normal()
		}
		return types.KnownFailing(DefectPNGWriteback)
	}},
}

var defaultChecks = []struct {
	suffix   string
	kind     Kind
	property types.Property
}{
	{"title", KindScalar, types.Property{Name: types.PropTitle}},
	{"description", KindScalar, types.Property{Name: types.PropDescription}},
	{"keyword", KindScalar, types.Property{Name: types.PropKeyword, ExpectedKey: types.KeyTagLabel}},
	{"hasTag", KindTag, types.Property{}},
}

// DefaultSet returns the standard scenarios for fixtures staged under
// baseDir: title, description, keyword and tag checks for a JPEG, a TIFF
// and a PNG file. The PNG description, keyword and tag checks are known
// failing.
func DefaultSet(baseDir string) []Scenario {
	var out []Scenario
	for _, g := range defaultGroups {
		file := types.NewTestFile(baseDir, MonitoredDir+"/"+g.name, g.mediaType)
		for i, c := range defaultChecks {
			out = append(out, Scenario{
				ID:       fmt.Sprintf("%03d_%s_%s", g.base+i, g.format, c.suffix),
				File:     file,
				Kind:     c.kind,
				Property: c.property,
				Expected: g.expected(i),
			})
		}
	}
	return out
}

// DefaultFixtureNames lists the file names the default set expects the
// provisioner to stage into MonitoredDir.
func DefaultFixtureNames() []string {
	names := make([]string, 0, len(defaultGroups))
	for _, g := range defaultGroups {
		names = append(names, g.name)
	}
	return names
}

// Filter returns the scenarios whose ID matches pattern. An empty pattern
// matches everything.
func Filter(scenarios []Scenario, pattern string) ([]Scenario, error) {
	if pattern == "" {
		return scenarios, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling filter: %w", err)
	}
	var out []Scenario
	for _, s := range scenarios {
		if re.MatchString(s.ID) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no scenario matches %q", types.ErrUnknownScenario, pattern)
	}
	return out, nil
}
