package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/identification"
	"github.com/ChrisMcGann/lipidquant/pkg/isotope"
	"github.com/ChrisMcGann/lipidquant/pkg/library/sqlite"
	"github.com/ChrisMcGann/lipidquant/pkg/rules"
)

// reference holds the element, adduct and rule data a run works with
type reference struct {
	elements *isotope.ElementTable
	adducts  *core.AdductDatabase
	rules    identification.RuleLookup
	ruleSet  *rules.Set
	library  *sqlite.Library
}

func (r *reference) Close() error {
	if r.library != nil {
		return r.library.Close()
	}
	return nil
}

// loadReference reads the configured SQLite library, or else the built-in defaults
// overridden by the configured CSV files
func loadReference() (*reference, error) {
	if cfg.Library != "" {
		return loadLibrary(cfg.Library)
	}

	ref := &reference{
		elements: isotope.DefaultElementTable(),
		adducts:  core.DefaultAdductDatabase(),
		ruleSet:  rules.NewSet(),
	}

	var errs *multierror.Error
	if cfg.Elements != "" {
		table := isotope.NewElementTable()
		if err := loadCSV(cfg.Elements, table.LoadFromCSV); err != nil {
			errs = multierror.Append(errs, err)
		} else if err := table.Validate(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", cfg.Elements, err))
		} else {
			ref.elements = table
		}
	}
	if cfg.Adducts != "" {
		if err := loadCSV(cfg.Adducts, ref.adducts.LoadFromCSV); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if cfg.Rules != "" {
		if err := loadCSV(cfg.Rules, ref.ruleSet.LoadFromCSV); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	ref.rules = ref.ruleSet
	logger.Debug("loaded reference data",
		zap.Int("elements", len(ref.elements.Symbols())),
		zap.Int("adducts", ref.adducts.Len()),
		zap.Int("rules", len(ref.ruleSet.All())))
	return ref, nil
}

func loadLibrary(path string) (*reference, error) {
	lib, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}

	elements, err := lib.Elements()
	if err != nil {
		lib.Close()
		return nil, fmt.Errorf("library %s: %w", path, err)
	}
	adducts, err := lib.Adducts()
	if err != nil {
		lib.Close()
		return nil, fmt.Errorf("library %s: %w", path, err)
	}
	ruleSet, err := lib.Rules()
	if err != nil {
		lib.Close()
		return nil, fmt.Errorf("library %s: %w", path, err)
	}

	logger.Debug("loaded reference library", zap.String("path", path))
	return &reference{
		elements: elements,
		adducts:  adducts,
		rules:    lib,
		ruleSet:  ruleSet,
		library:  lib,
	}, nil
}

func loadCSV(path string, load func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
