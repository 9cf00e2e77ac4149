// Package hitlist provides a streaming reader for text hit lists. Each block describes one
// identification:
//
//	Experiment: exp1
//	Class: PC
//	Species: 34:1
//	Modification: H
//	Formula: C42 H82 N1 O8 P1
//	ModFormula: H1
//	Mz: 760.5851
//	Charge: 1
//	Rt: 5.2
//	MSn: status=2 16:0_18:1=120.5
//	Num probes: 2
//	0	1000	312.4	305.1	320.2	760.5851
//	1	470	312.5	305.2	320.0	761.5885
//
// Probe lines are isotope, area, apex, lower valley, upper valley (seconds) and m/z.
// Optional headers are Split, LowerRtLimit, UpperRtLimit and Oh.
package hitlist

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/ChrisMcGann/lipidquant/pkg/identification"
)

// Reader provides streaming access to hit list files. A malformed block is skipped and its
// error collected; reading continues with the next block.
type Reader struct {
	scanner    *bufio.Scanner
	lineNum    int
	experiment string
	current    *identification.Hit
	atBlockEnd bool // the last error consumed the blank line closing its block
	errs       *multierror.Error
}

// NewReader creates a new hit list reader. experiment is used for blocks without an
// Experiment header.
func NewReader(r io.Reader, experiment string) *Reader {
	return &Reader{
		scanner:    bufio.NewScanner(r),
		experiment: experiment,
	}
}

// Next advances to the next identification. Returns false when no more blocks are left.
func (r *Reader) Next() bool {
	r.current = nil
	for {
		hit, err := r.readHit()
		if err == io.EOF {
			return false
		}
		if err != nil {
			r.errs = multierror.Append(r.errs, err)
			if r.atBlockEnd || r.skipBlock() {
				continue
			}
			return false
		}
		r.current = hit
		return true
	}
}

// Hit returns the current identification
func (r *Reader) Hit() *identification.Hit {
	return r.current
}

// Err returns all errors encountered during reading
func (r *Reader) Err() error {
	return r.errs.ErrorOrNil()
}

// ReadAll reads every identification, grouped by experiment
func ReadAll(r *Reader) (map[string][]*identification.Hit, error) {
	out := make(map[string][]*identification.Hit)
	for r.Next() {
		hit := r.Hit()
		out[hit.Experiment] = append(out[hit.Experiment], hit)
	}
	return out, r.Err()
}

// skipBlock consumes lines up to the next blank line. Returns false at end of input.
func (r *Reader) skipBlock() bool {
	for r.scanner.Scan() {
		r.lineNum++
		if strings.TrimSpace(r.scanner.Text()) == "" {
			return true
		}
	}
	if err := r.scanner.Err(); err != nil {
		r.errs = multierror.Append(r.errs, err)
	}
	return false
}

type block struct {
	params     identification.Params
	experiment string
	class      string
	species    string
	split      *float64
	lower      *float64
	upper      *float64
	msn        *identification.MSnEvidence
	probes     []identification.Probe
	started    bool
}

// readHit reads a single block
func (r *Reader) readHit() (*identification.Hit, error) {
	b := &block{experiment: r.experiment}
	r.atBlockEnd = false

	numProbes := 0
	inProbes := false

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())

		// Skip empty lines between blocks
		if line == "" {
			if !b.started {
				continue
			}
			r.atBlockEnd = true
			return nil, fmt.Errorf("line %d: block ended after %d of %d probes", r.lineNum, len(b.probes), numProbes)
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		b.started = true

		if inProbes {
			probe, err := parseProbe(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			b.probes = append(b.probes, probe)
			if len(b.probes) >= numProbes {
				return r.build(b)
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected 'Key: value', got %q", r.lineNum, line)
		}
		value = strings.TrimSpace(value)
		if key == "Num probes" {
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("line %d: invalid num probes %q", r.lineNum, value)
			}
			numProbes = n
			if n == 0 {
				return r.build(b)
			}
			inProbes = true
			continue
		}
		if err := b.set(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if b.started {
		return nil, fmt.Errorf("line %d: unexpected end of input, %d of %d probes read", r.lineNum, len(b.probes), numProbes)
	}
	return nil, io.EOF
}

// set stores one header field
func (b *block) set(key, value string) error {
	var err error
	switch key {
	case "Experiment":
		b.experiment = value
	case "Class":
		b.class = value
	case "Species":
		b.species = value
	case "Modification":
		b.params.ModificationName = value
	case "Formula":
		b.params.AnalyteFormula = value
	case "ModFormula":
		b.params.ModificationFormula = value
	case "Rt":
		b.params.Rt = value
	case "Mz":
		b.params.Mz, err = strconv.ParseFloat(value, 64)
	case "Charge":
		b.params.Charge, err = strconv.Atoi(value)
	case "Oh":
		b.params.OhNumber, err = strconv.Atoi(value)
	case "Split":
		b.split, err = parseOptional(value)
	case "LowerRtLimit":
		b.lower, err = parseOptional(value)
	case "UpperRtLimit":
		b.upper, err = parseOptional(value)
	case "MSn":
		b.msn, err = parseMSn(value)
	default:
		// Unknown headers are ignored
	}
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return nil
}

// build turns a complete block into an identification
func (r *Reader) build(b *block) (*identification.Hit, error) {
	if b.species == "" {
		return nil, fmt.Errorf("line %d: block without Species", r.lineNum)
	}
	carbons, dbs, err := parseSpecies(b.species)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
	}
	b.params.Name = carbons
	if b.class != "" {
		b.params.Name = b.class + " " + carbons
	}
	b.params.DoubleBonds = dbs

	id, err := identification.New(b.params)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
	}
	if b.split != nil {
		id.SetPercentalSplit(*b.split)
	}
	if b.lower != nil {
		id.SetLowerRtHardLimit(*b.lower)
	}
	if b.upper != nil {
		id.SetUpperRtHardLimit(*b.upper)
	}
	id.MSn = b.msn

	for _, probe := range b.probes {
		slot := probe.IsotopeNumber
		if slot < 0 {
			slot = -slot
		}
		for len(id.Peak.IsotopicProbes) <= slot {
			id.Peak.IsotopicProbes = append(id.Peak.IsotopicProbes, nil)
		}
		id.Peak.IsotopicProbes[slot] = append(id.Peak.IsotopicProbes[slot], probe)
		id.Peak.Probes = append(id.Peak.Probes, probe)
		id.Peak.Area += probe.Area
	}
	if len(b.probes) > 0 && id.Peak.Mz[0] == 0 {
		id.Peak.Mz[0] = b.probes[0].Mz
	}
	if err := id.Peak.Validate(); err != nil {
		return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
	}

	return &identification.Hit{Experiment: b.experiment, ClassName: b.class, AnalyteIdentification: id}, nil
}

// parseSpecies splits "34:1" into "34" and 1; without a colon the double bonds are -1
func parseSpecies(species string) (string, int, error) {
	name, dbsStr, ok := strings.Cut(species, ":")
	if !ok {
		return species, -1, nil
	}
	dbs, err := strconv.Atoi(dbsStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid double bonds in species %q", species)
	}
	return name, dbs, nil
}

// parseProbe parses a probe line (format: "isotope area apex lower upper [mz]")
func parseProbe(line string) (identification.Probe, error) {
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return identification.Probe{}, fmt.Errorf("invalid probe format, expected at least 5 fields")
	}

	isotope, err := strconv.Atoi(fields[0])
	if err != nil {
		return identification.Probe{}, fmt.Errorf("invalid isotope number: %w", err)
	}

	values := make([]float64, len(fields)-1)
	for i, f := range fields[1:] {
		values[i], err = strconv.ParseFloat(f, 64)
		if err != nil {
			return identification.Probe{}, fmt.Errorf("invalid value %q: %w", f, err)
		}
	}

	probe := identification.Probe{
		IsotopeNumber: isotope,
		Area:          values[0],
		Peak:          values[1],
		LowerValley:   values[2],
		UpperValley:   values[3],
	}
	if len(values) > 4 {
		probe.Mz = values[4]
	}
	return probe, nil
}

// parseMSn parses "status=2 16:0_18:1=120.5 ..."
func parseMSn(value string) (*identification.MSnEvidence, error) {
	msn := &identification.MSnEvidence{ChainCombinations: make(map[string]float64)}
	for _, field := range strings.Fields(value) {
		key, v, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", field)
		}
		if key == "status" {
			status, err := strconv.Atoi(v)
			if err != nil {
				return nil, err
			}
			msn.Status = status
			continue
		}
		area, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		msn.ChainCombinations[key] += area
	}
	return msn, nil
}

func parseOptional(value string) (*float64, error) {
	if value == "" || value == "-" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
