// Package xlsx loads identifications from spreadsheets with one worksheet per lipid class.
// The first row of a worksheet names the columns:
//
//	|Species|Modification|Formula|ModFormula|Mz|Charge|Rt|RtSeconds|Split|Area_0|Area_1|...|
//
// Species ("34:1"), Formula and Mz are required. Every Area_i column becomes one probe of
// isotope i; empty area cells end the isotope list of a row.
package xlsx

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/hashicorp/go-multierror"

	"github.com/ChrisMcGann/lipidquant/pkg/identification"
)

const areaPrefix = "Area_"

// Load reads every worksheet of the file at path. Rows that cannot be read are skipped and
// reported together in the returned error.
func Load(path, experiment string) ([]*identification.Hit, error) {
	xlsx, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}

	sheets := xlsx.GetSheetMap()
	indexes := make([]int, 0, len(sheets))
	for index := range sheets {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	var hits []*identification.Hit
	var savedErrs *multierror.Error
	for _, index := range indexes {
		sheetHits, err := loadWorksheet(xlsx, sheets[index], experiment)
		if err != nil {
			savedErrs = multierror.Append(savedErrs, err)
		}
		hits = append(hits, sheetHits...)
	}
	return hits, savedErrs.ErrorOrNil()
}

// loadWorksheet reads the rows of one worksheet; the worksheet name is the lipid class
func loadWorksheet(xlsx *excelize.File, class, experiment string) ([]*identification.Hit, error) {
	rows, err := xlsx.Rows(class)
	if err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, nil
	}
	header, err := newColumnMap(rows.Columns())
	if err != nil {
		return nil, fmt.Errorf("worksheet %s: %w", class, err)
	}

	var hits []*identification.Hit
	var savedErrs *multierror.Error
	row := 1
	for rows.Next() {
		row++
		cells := rows.Columns()
		if isBlank(cells) {
			continue
		}
		hit, err := header.hit(cells, class, experiment)
		if err != nil {
			savedErrs = multierror.Append(savedErrs, fmt.Errorf("worksheet %s row %d: %w", class, row, err))
			continue
		}
		hits = append(hits, hit)
	}
	return hits, savedErrs.ErrorOrNil()
}

// columnMap maps header names to column indexes
type columnMap struct {
	columns map[string]int
	areas   []int // column index of Area_0, Area_1, ...
}

func newColumnMap(header []string) (*columnMap, error) {
	c := &columnMap{columns: make(map[string]int)}
	areas := make(map[int]int)
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, areaPrefix) {
			iso, err := strconv.Atoi(strings.TrimPrefix(name, areaPrefix))
			if err != nil || iso < 0 {
				return nil, fmt.Errorf("invalid area column %q", name)
			}
			areas[iso] = i
			continue
		}
		c.columns[name] = i
	}
	for iso := 0; ; iso++ {
		col, ok := areas[iso]
		if !ok {
			break
		}
		c.areas = append(c.areas, col)
	}
	if len(c.areas) != len(areas) {
		return nil, fmt.Errorf("area columns must start at %s0 without gaps", areaPrefix)
	}
	for _, required := range []string{"Species", "Formula", "Mz"} {
		if _, ok := c.columns[required]; !ok {
			return nil, fmt.Errorf("missing column %s", required)
		}
	}
	return c, nil
}

func (c *columnMap) cell(cells []string, name string) string {
	i, ok := c.columns[name]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func (c *columnMap) float(cells []string, name string) (float64, bool, error) {
	s := c.cell(cells, name)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q", name, s)
	}
	return v, true, nil
}

func (c *columnMap) hit(cells []string, class, experiment string) (*identification.Hit, error) {
	carbons, dbsStr, hasDbs := strings.Cut(c.cell(cells, "Species"), ":")
	if carbons == "" {
		return nil, fmt.Errorf("missing species")
	}
	dbs := -1
	if hasDbs {
		n, err := strconv.Atoi(dbsStr)
		if err != nil {
			return nil, fmt.Errorf("invalid double bonds %q", dbsStr)
		}
		dbs = n
	}

	mz, _, err := c.float(cells, "Mz")
	if err != nil {
		return nil, err
	}
	charge := 1
	if s := c.cell(cells, "Charge"); s != "" {
		if charge, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("invalid charge %q", s)
		}
	}

	id, err := identification.New(identification.Params{
		Mz:                  mz,
		Name:                class + " " + carbons,
		DoubleBonds:         dbs,
		ModificationName:    c.cell(cells, "Modification"),
		Rt:                  c.cell(cells, "Rt"),
		AnalyteFormula:      c.cell(cells, "Formula"),
		ModificationFormula: c.cell(cells, "ModFormula"),
		Charge:              charge,
	})
	if err != nil {
		return nil, err
	}

	split, ok, err := c.float(cells, "Split")
	if err != nil {
		return nil, err
	}
	if ok {
		id.SetPercentalSplit(split)
	}
	rtSeconds, _, err := c.float(cells, "RtSeconds")
	if err != nil {
		return nil, err
	}

	for iso, col := range c.areas {
		if col >= len(cells) || strings.TrimSpace(cells[col]) == "" {
			break
		}
		area, err := strconv.ParseFloat(strings.TrimSpace(cells[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s%d %q", areaPrefix, iso, cells[col])
		}
		probe := identification.Probe{Area: area, Peak: rtSeconds, IsotopeNumber: iso}
		id.Peak.IsotopicProbes = append(id.Peak.IsotopicProbes, []identification.Probe{probe})
		id.Peak.Area += area
	}
	if err := id.Peak.Validate(); err != nil {
		return nil, err
	}

	return &identification.Hit{Experiment: experiment, ClassName: class, AnalyteIdentification: id}, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
