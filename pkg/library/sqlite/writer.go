// Package sqlite provides the SQLite reference library of lipidquant: isotope element
// configuration, adduct definitions and retention-time rules in one file.
package sqlite

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/isotope"
	"github.com/ChrisMcGann/lipidquant/pkg/rules"
)

const (
	// Date format for HeaderTable (ISO 8601)
	headerDateFormat = "2006-01-02"
	// Date format for MaintenanceTable
	maintenanceDateFormat = "2006 01 02"

	schemaVersion = 1
)

// Writer handles writing reference data to SQLite database files
type Writer struct {
	db          *sql.DB
	outputPath  string
	elementStmt *sql.Stmt
	adductStmt  *sql.Stmt
	ruleStmt    *sql.Stmt
	written     int
	closed      bool
}

// NewWriter creates a new SQLite writer
func NewWriter(outputPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := w.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ElementTable (
		Symbol TEXT PRIMARY KEY,
		blobOffset BLOB,
		blobMass BLOB,
		blobAbundance BLOB
	);

	CREATE TABLE IF NOT EXISTS AdductTable (
		Name TEXT PRIMARY KEY,
		Formula TEXT,
		Charge INTEGER,
		Mass DOUBLE
	);

	CREATE TABLE IF NOT EXISTS RuleTable (
		Rule TEXT PRIMARY KEY,
		ClassName TEXT,
		Modification TEXT,
		RtPostprocessing BOOL
	);

	CREATE TABLE IF NOT EXISTS HeaderTable (
		version INTEGER NOT NULL DEFAULT 0,
		CreationDate TEXT,
		LastModifiedDate TEXT,
		Description TEXT
	);

	CREATE TABLE IF NOT EXISTS MaintenanceTable (
		CreationDate TEXT,
		NoofEntriesModified INTEGER,
		Description TEXT
	);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares SQL statements for batch insertion
func (w *Writer) prepareStatements() error {
	var err error

	w.elementStmt, err = w.db.Prepare(`
		INSERT OR REPLACE INTO ElementTable (Symbol, blobOffset, blobMass, blobAbundance)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare element statement: %w", err)
	}

	w.adductStmt, err = w.db.Prepare(`
		INSERT OR REPLACE INTO AdductTable (Name, Formula, Charge, Mass)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare adduct statement: %w", err)
	}

	w.ruleStmt, err = w.db.Prepare(`
		INSERT OR REPLACE INTO RuleTable (Rule, ClassName, Modification, RtPostprocessing)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare rule statement: %w", err)
	}

	return nil
}

// WriteElement writes the isotopes of one element
func (w *Writer) WriteElement(el *isotope.Element) error {
	offsets := make([]float64, len(el.Isotopes))
	masses := make([]float64, len(el.Isotopes))
	abundances := make([]float64, len(el.Isotopes))
	for i, iso := range el.Isotopes {
		offsets[i] = float64(iso.Offset)
		masses[i] = iso.Mass
		abundances[i] = iso.Abundance
	}

	_, err := w.elementStmt.Exec(
		el.Symbol,
		encodeFloat64(offsets),
		encodeFloat64(masses),
		encodeFloat64(abundances),
	)
	if err != nil {
		return fmt.Errorf("failed to insert element %s: %w", el.Symbol, err)
	}

	w.written++
	return nil
}

// WriteElementTable writes every element of a table
func (w *Writer) WriteElementTable(t *isotope.ElementTable) error {
	for _, symbol := range t.Symbols() {
		el, _ := t.Get(symbol)
		if err := w.WriteElement(el); err != nil {
			return err
		}
	}
	return nil
}

// WriteAdduct writes one adduct together with its mass shift
func (w *Writer) WriteAdduct(a core.Adduct) error {
	mass, err := a.Mass()
	if err != nil {
		return fmt.Errorf("adduct %s: %w", a.Name, err)
	}

	_, err = w.adductStmt.Exec(a.Name, a.Formula, a.Charge, mass)
	if err != nil {
		return fmt.Errorf("failed to insert adduct %s: %w", a.Name, err)
	}

	w.written++
	return nil
}

// WriteAdducts writes every adduct of a database
func (w *Writer) WriteAdducts(db *core.AdductDatabase) error {
	for _, a := range db.All() {
		if err := w.WriteAdduct(a); err != nil {
			return err
		}
	}
	return nil
}

// WriteRule writes one retention-time rule
func (w *Writer) WriteRule(r rules.Rule) error {
	_, err := w.ruleStmt.Exec(r.Name(), r.ClassName, r.Modification, r.RtPostprocessing)
	if err != nil {
		return fmt.Errorf("failed to insert rule %s: %w", r.Name(), err)
	}

	w.written++
	return nil
}

// WriteRules writes every rule of a set
func (w *Writer) WriteRules(s *rules.Set) error {
	for _, r := range s.All() {
		if err := w.WriteRule(r); err != nil {
			return err
		}
	}
	return nil
}

// encodeFloat64 encodes values as a little-endian float64 blob
func encodeFloat64(values []float64) []byte {
	buf := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeFloat64 is the inverse of encodeFloat64
func decodeFloat64(buf []byte) ([]float64, error) {
	if len(buf)%8 != 0 {
		return nil, fmt.Errorf("blob length %d is not a multiple of 8", len(buf))
	}
	values := make([]float64, len(buf)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return values, nil
}

// Finalize writes the header and maintenance tables and closes the database
func (w *Writer) Finalize(description string) error {
	if w.closed {
		return fmt.Errorf("writer for %s already closed", w.outputPath)
	}

	now := time.Now()

	// Write HeaderTable
	_, err := w.db.Exec(`
		INSERT INTO HeaderTable (version, CreationDate, LastModifiedDate, Description)
		VALUES (?, ?, ?, ?)
	`, schemaVersion, now.Format(headerDateFormat), now.Format(headerDateFormat), description)
	if err != nil {
		return fmt.Errorf("failed to insert header: %w", err)
	}

	// Write MaintenanceTable
	_, err = w.db.Exec(`
		INSERT INTO MaintenanceTable (CreationDate, NoofEntriesModified, Description)
		VALUES (?, ?, ?)
	`, now.Format(maintenanceDateFormat), w.written, description)
	if err != nil {
		return fmt.Errorf("failed to insert maintenance: %w", err)
	}

	return w.Close()
}

// Close releases the statements and the database without writing the header tables.
// Calling it more than once is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	// Close prepared statements
	for _, stmt := range []*sql.Stmt{w.elementStmt, w.adductStmt, w.ruleStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}

	// Close database
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
