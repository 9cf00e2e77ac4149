package xlsx

import (
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWorkbook(t *testing.T, sheets map[string][][]interface{}, order []string) string {
	t.Helper()
	f := excelize.NewFile()
	for i, name := range order {
		if i == 0 {
			f.SetSheetName("Sheet1", name)
		} else {
			f.NewSheet(name)
		}
		for r, row := range sheets[name] {
			for c, value := range row {
				axis := excelize.ToAlphaString(c) + strconv.Itoa(r+1)
				f.SetCellValue(name, axis, value)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "hits.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

var header = []interface{}{"Species", "Modification", "Formula", "ModFormula", "Mz", "Charge", "Rt", "RtSeconds", "Split", "Area_0", "Area_1", "Area_2"}

func TestLoad(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"PC": {
			header,
			{"34:1", "H", "C42 H82 N1 O8 P1", "H1", 760.5851, 1, "5.2", 312.0, "", 1000.0, 470.0, 110.0},
			{"34:1", "Na", "C42 H82 N1 O8 P1", "Na1", 782.5670, 1, "5.2", 312.5, 50, 300.0, 140.0},
		},
		"PE": {
			header,
			{"36:2", "-H", "C41 H78 N1 O8 P1", "H-1", 742.5397, -1, "4.1", 246.0, "", 80.0},
		},
	}, []string{"PC", "PE"})

	hits, err := Load(path, "exp1")
	require.NoError(t, err)
	require.Len(t, hits, 3)

	pc := hits[0]
	assert.Equal(t, "exp1", pc.Experiment)
	assert.Equal(t, "PC", pc.ClassName)
	assert.Equal(t, "PC 34:1_5.2", pc.NameString())
	assert.Equal(t, "C42 H83 N1 O8 P1", pc.ChemicalFormula())
	require.Len(t, pc.Peak.IsotopicProbes, 3)
	assert.Equal(t, 1580.0, pc.Peak.Area)
	assert.Equal(t, 312.0, pc.Peak.IsotopicProbes[0][0].Peak)

	na := hits[1]
	assert.Len(t, na.Peak.IsotopicProbes, 2)
	assert.Equal(t, 220.0, na.Area(1))

	pe := hits[2]
	assert.Equal(t, "PE", pe.ClassName)
	assert.Equal(t, -1, pe.Charge())
}

func TestLoadCollectsRowErrors(t *testing.T) {
	path := writeWorkbook(t, map[string][][]interface{}{
		"PC": {
			header,
			{"34:x", "H", "C42 H82 N1 O8 P1", "H1", 760.5851, 1, "5.2", 312.0, "", 1000.0},
			{"34:1", "H", "C42 H82 N1 O8 P1", "H1", 760.5851, 1, "5.2", 312.0, "", "many"},
			{"34:1", "H", "C42 H82 N1 O8 P1", "H1", 760.5851, 1, "5.2", 312.0, "", 1000.0},
		},
		"Notes": {
			{"free text"},
		},
	}, []string{"PC", "Notes"})

	hits, err := Load(path, "exp1")
	assert.Len(t, hits, 1)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 3)
	assert.Contains(t, merr.Error(), "worksheet PC row 2")
	assert.Contains(t, merr.Error(), "worksheet Notes: missing column Species")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.xlsx"), "exp1")
	assert.Error(t, err)
}
