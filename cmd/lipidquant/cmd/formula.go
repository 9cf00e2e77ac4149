package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ChrisMcGann/lipidquant/pkg/core"
	"github.com/ChrisMcGann/lipidquant/pkg/isotope"
)

var adductName string

var formulaCmd = &cobra.Command{
	Use:   "formula",
	Short: "Chemical formula utilities",
}

var formulaCombineCmd = &cobra.Command{
	Use:     "combine [analyte] [modification]",
	Short:   "Add a modification formula to an analyte formula",
	Example: `  lipidquant formula combine "C10 H20" "H-1"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		combined, withoutDeducts, err := core.CombineFormulas(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Formula: %s\n", combined)
		fmt.Printf("Without deducts: %s\n", withoutDeducts)
		return nil
	},
}

var formulaMassCmd = &cobra.Command{
	Use:   "mass [formula]",
	Short: "Print the monoisotopic mass and, with --adduct, the m/z of a formula",
	Args:  cobra.ExactArgs(1),
	RunE:  runFormulaMass,
}

var formulaIsotopesCmd = &cobra.Command{
	Use:   "isotopes [formula]",
	Short: "Print the predicted isotope distribution of a formula",
	Args:  cobra.ExactArgs(1),
	RunE:  runFormulaIsotopes,
}

func init() {
	formulaCmd.AddCommand(formulaCombineCmd)
	formulaCmd.AddCommand(formulaMassCmd)
	formulaCmd.AddCommand(formulaIsotopesCmd)

	formulaMassCmd.Flags().StringVarP(&adductName, "adduct", "a", "", "Adduct name, e.g. 'H' or '-H'")
}

func runFormulaMass(cmd *cobra.Command, args []string) error {
	f, err := core.ParseFormula(args[0])
	if err != nil {
		return err
	}
	mass, err := core.CalculateNeutralMass(f)
	if err != nil {
		return err
	}
	fmt.Printf("Formula: %s\n", f)
	fmt.Printf("Neutral mass: %.6f\n", mass)

	if adductName == "" {
		return nil
	}

	ref, err := loadReference()
	if err != nil {
		return err
	}
	defer ref.Close()

	adduct, ok := ref.adducts.Get(adductName)
	if !ok {
		return fmt.Errorf("unknown adduct %q", adductName)
	}
	shift, err := adduct.Mass()
	if err != nil {
		return err
	}
	fmt.Printf("m/z [M%s]%s: %.6f\n", signedName(adduct.Name), chargeLabel(adduct.Charge),
		core.CalculateMZ(mass, shift, adduct.Charge))
	return nil
}

func runFormulaIsotopes(cmd *cobra.Command, args []string) error {
	ref, err := loadReference()
	if err != nil {
		return err
	}
	defer ref.Close()

	calc := isotope.NewCalculator(ref.elements, cfg.Isotopes.CacheTTL)
	distribution, err := calc.Predict(args[0], cfg.Isotopes.Count)
	if err != nil {
		return err
	}
	for i, p := range distribution {
		fmt.Printf("M+%d\t%.6f\n", i, p)
	}
	return nil
}

func signedName(name string) string {
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, "+") {
		return name
	}
	return "+" + name
}

func chargeLabel(charge int) string {
	sign := "+"
	if charge < 0 {
		sign = "-"
		charge = -charge
	}
	if charge == 1 {
		return sign
	}
	return fmt.Sprintf("%d%s", charge, sign)
}
