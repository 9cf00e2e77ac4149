package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/isotope"
	"github.com/ChrisMcGann/lipidquant/pkg/rules"
)

// Header is the metadata row of a library file
type Header struct {
	Version          int
	CreationDate     string
	LastModifiedDate string
	Description      string
}

// Library reads a reference library written by Writer
type Library struct {
	db       *sql.DB
	path     string
	ruleStmt *sql.Stmt
}

// Open opens an existing library file read-only
func Open(path string) (*Library, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open library %s: %w", path, err)
	}

	stmt, err := db.Prepare(`SELECT RtPostprocessing FROM RuleTable WHERE Rule = ?`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare rule query: %w", err)
	}

	return &Library{db: db, path: path, ruleStmt: stmt}, nil
}

// Header returns the most recent header row
func (l *Library) Header() (Header, error) {
	var h Header
	err := l.db.QueryRow(`
		SELECT version, CreationDate, LastModifiedDate, Description
		FROM HeaderTable ORDER BY rowid DESC LIMIT 1
	`).Scan(&h.Version, &h.CreationDate, &h.LastModifiedDate, &h.Description)
	if err != nil {
		return Header{}, fmt.Errorf("failed to read header: %w", err)
	}
	return h, nil
}

// Elements loads and validates the element configuration
func (l *Library) Elements() (*isotope.ElementTable, error) {
	rows, err := l.db.Query(`SELECT Symbol, blobOffset, blobMass, blobAbundance FROM ElementTable ORDER BY Symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements: %w", err)
	}
	defer rows.Close()

	table := isotope.NewElementTable()
	for rows.Next() {
		var symbol string
		var offsetBlob, massBlob, abundanceBlob []byte
		if err := rows.Scan(&symbol, &offsetBlob, &massBlob, &abundanceBlob); err != nil {
			return nil, fmt.Errorf("failed to scan element: %w", err)
		}
		offsets, err := decodeFloat64(offsetBlob)
		if err != nil {
			return nil, &core.SpectrumParseError{Source: symbol, Message: "invalid offsets", Err: err}
		}
		masses, err := decodeFloat64(massBlob)
		if err != nil {
			return nil, &core.SpectrumParseError{Source: symbol, Message: "invalid masses", Err: err}
		}
		abundances, err := decodeFloat64(abundanceBlob)
		if err != nil {
			return nil, &core.SpectrumParseError{Source: symbol, Message: "invalid abundances", Err: err}
		}
		if len(offsets) != len(masses) || len(offsets) != len(abundances) {
			return nil, &core.SpectrumParseError{Source: symbol, Message: "isotope columns differ in length"}
		}
		for i := range offsets {
			table.Add(symbol, isotope.Isotope{Offset: int(offsets[i]), Mass: masses[i], Abundance: abundances[i]})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read elements: %w", err)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Adducts loads the adduct definitions
func (l *Library) Adducts() (*core.AdductDatabase, error) {
	rows, err := l.db.Query(`SELECT Name, Formula, Charge FROM AdductTable ORDER BY Name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query adducts: %w", err)
	}
	defer rows.Close()

	db := core.NewAdductDatabase()
	for rows.Next() {
		var a core.Adduct
		if err := rows.Scan(&a.Name, &a.Formula, &a.Charge); err != nil {
			return nil, fmt.Errorf("failed to scan adduct: %w", err)
		}
		db.Add(a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read adducts: %w", err)
	}
	return db, nil
}

// Rules loads every retention-time rule
func (l *Library) Rules() (*rules.Set, error) {
	rows, err := l.db.Query(`SELECT ClassName, Modification, RtPostprocessing FROM RuleTable ORDER BY Rule`)
	if err != nil {
		return nil, &core.RuleLookupError{Rule: "RuleTable", Err: err}
	}
	defer rows.Close()

	set := rules.NewSet()
	for rows.Next() {
		var r rules.Rule
		if err := rows.Scan(&r.ClassName, &r.Modification, &r.RtPostprocessing); err != nil {
			return nil, &core.RuleLookupError{Rule: "RuleTable", Err: err}
		}
		set.Add(r)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.RuleLookupError{Rule: "RuleTable", Err: err}
	}
	return set, nil
}

// IsRtPostprocessing looks up a single rule. A missing rule is a *core.RuleLookupError.
func (l *Library) IsRtPostprocessing(className, modification string) (bool, error) {
	name := rules.RuleName(className, modification)
	var enabled bool
	err := l.ruleStmt.QueryRow(name).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, &core.RuleLookupError{Rule: name}
	}
	if err != nil {
		return false, &core.RuleLookupError{Rule: name, Err: err}
	}
	return enabled, nil
}

// Close closes the library
func (l *Library) Close() error {
	l.ruleStmt.Close()
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("failed to close library: %w", err)
	}
	return nil
}
