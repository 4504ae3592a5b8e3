// Package units converts recipe quantities and SKU package sizes into an
// ingredient's base unit.
package units

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/actuallystonmai/menu-planner/internal/domain"
)

type Family int

const (
	FamilyUnknown Family = iota
	FamilyMass
	FamilyVolume
	FamilyCount
)

func (f Family) String() string {
	switch f {
	case FamilyMass:
		return "mass"
	case FamilyVolume:
		return "volume"
	case FamilyCount:
		return "count"
	}
	return "unknown"
}

// unitDef expresses a unit as a multiple of its family's reference unit
// (gram, millilitre, single item).
type unitDef struct {
	family Family
	factor float64
}

var unitTable = map[string]unitDef{
	"g":      {FamilyMass, 1},
	"gram":   {FamilyMass, 1},
	"grams":  {FamilyMass, 1},
	"kg":     {FamilyMass, 1000},
	"kgs":    {FamilyMass, 1000},
	"oz":     {FamilyMass, 28.349523125},
	"ounce":  {FamilyMass, 28.349523125},
	"ounces": {FamilyMass, 28.349523125},
	"lb":     {FamilyMass, 453.59237},
	"lbs":    {FamilyMass, 453.59237},
	"pound":  {FamilyMass, 453.59237},
	"pounds": {FamilyMass, 453.59237},

	"ml":          {FamilyVolume, 1},
	"milliliter":  {FamilyVolume, 1},
	"milliliters": {FamilyVolume, 1},
	"millilitre":  {FamilyVolume, 1},
	"l":           {FamilyVolume, 1000},
	"liter":       {FamilyVolume, 1000},
	"liters":      {FamilyVolume, 1000},
	"litre":       {FamilyVolume, 1000},
	"tsp":         {FamilyVolume, 4.92892159375},
	"teaspoon":    {FamilyVolume, 4.92892159375},
	"teaspoons":   {FamilyVolume, 4.92892159375},
	"tbsp":        {FamilyVolume, 14.78676478125},
	"tablespoon":  {FamilyVolume, 14.78676478125},
	"tablespoons": {FamilyVolume, 14.78676478125},
	"cup":         {FamilyVolume, 236.5882365},
	"cups":        {FamilyVolume, 236.5882365},
	"fl oz":       {FamilyVolume, 29.5735295625},
	"floz":        {FamilyVolume, 29.5735295625},
	"fluid ounce": {FamilyVolume, 29.5735295625},

	"each":  {FamilyCount, 1},
	"ea":    {FamilyCount, 1},
	"unit":  {FamilyCount, 1},
	"units": {FamilyCount, 1},
	"count": {FamilyCount, 1},
	"ct":    {FamilyCount, 1},
	"piece": {FamilyCount, 1},
	"pc":    {FamilyCount, 1},
	"dozen": {FamilyCount, 12},
}

var spaces = regexp.MustCompile(`\s+`)

func normalize(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.ReplaceAll(u, ".", "")
	u = spaces.ReplaceAllString(u, " ")
	if u == "fl ounce" || u == "fluid ounces" || u == "fl ozs" {
		return "fl oz"
	}
	return u
}

var ErrInvalidQuantity = errors.New("quantity must be a finite non-negative number")

// ConversionError reports a quantity that cannot be expressed in the
// requested base unit. It wraps domain.ErrUnitMismatch or
// domain.ErrUnknownUnit.
type ConversionError struct {
	Quantity float64
	From     string
	To       string
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %g %s to %s: %v", e.Quantity, e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func IsConversionError(err error) bool {
	var target *ConversionError
	return errors.As(err, &target)
}

// Lookup returns the family of unit and its factor relative to the family's
// reference unit.
func Lookup(unit string) (Family, float64, error) {
	def, ok := unitTable[normalize(unit)]
	if !ok {
		return FamilyUnknown, 0, fmt.Errorf("%w %q", domain.ErrUnknownUnit, unit)
	}
	return def.family, def.factor, nil
}

// ConvertUnits converts within a single family using fixed ratios.
func ConvertUnits(q float64, from, to string) (float64, error) {
	ff, fFactor, err := Lookup(from)
	if err != nil {
		return 0, &ConversionError{Quantity: q, From: from, To: to, Err: domain.ErrUnknownUnit}
	}
	tf, tFactor, err := Lookup(to)
	if err != nil {
		return 0, &ConversionError{Quantity: q, From: from, To: to, Err: domain.ErrUnknownUnit}
	}
	if ff != tf {
		return 0, &ConversionError{Quantity: q, From: from, To: to, Err: domain.ErrUnitMismatch}
	}
	return q * fFactor / tFactor, nil
}

// Convert expresses q of unit from in ing's base unit. Cross-family
// conversion only happens through the ingredient's item hint or density;
// without them the conversion fails rather than passing the magnitude
// through.
func Convert(q float64, from string, ing domain.Ingredient) (float64, error) {
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0, ErrInvalidQuantity
	}
	to := ing.BaseUnit
	fail := func(err error) (float64, error) {
		return 0, &ConversionError{Quantity: q, From: from, To: to, Err: err}
	}

	ff, fFactor, err := Lookup(from)
	if err != nil {
		return fail(domain.ErrUnknownUnit)
	}
	bf, bFactor, err := Lookup(to)
	if err != nil {
		return fail(domain.ErrUnknownUnit)
	}
	if ff == bf {
		return q * fFactor / bFactor, nil
	}

	ref := q * fFactor
	hint := positive(ing.BaseUnitQtyHint)
	density := positive(ing.DensityGPerML)

	switch {
	case ff == FamilyCount && hint > 0:
		// hint is already in base units per item
		return ref * hint, nil
	case bf == FamilyCount && ff == FamilyMass && hint > 0:
		return ref / hint / bFactor, nil
	case bf == FamilyCount && ff == FamilyVolume && hint > 0 && density > 0:
		return ref * density / hint / bFactor, nil
	case ff == FamilyMass && bf == FamilyVolume && density > 0:
		return ref / density / bFactor, nil
	case ff == FamilyVolume && bf == FamilyMass && density > 0:
		return ref * density / bFactor, nil
	}
	return fail(domain.ErrUnitMismatch)
}

func positive(v *float64) float64 {
	if v == nil || *v <= 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}

var sizeInName = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(fl\.?\s*oz|oz|lbs?|kg|g|ml|l)\b`)

// SizeFromName extracts an embedded package size such as "2 lbs" or
// "68 fl oz" from a product name.
func SizeFromName(name string) (float64, string, bool) {
	m := sizeInName.FindStringSubmatch(name)
	if m == nil {
		return 0, "", false
	}
	q, err := strconv.ParseFloat(m[1], 64)
	if err != nil || q <= 0 {
		return 0, "", false
	}
	return q, normalize(m[2]), true
}

func generic(unit string) bool {
	switch normalize(unit) {
	case "", "each", "ea", "unit", "ct", "count":
		return true
	}
	return false
}

// PackageYield returns how much of ing's base unit one package of sku
// provides. Generic "each" sizes fall back to a size embedded in the
// product name when the base unit is a mass or volume.
func PackageYield(sku domain.SKU, ing domain.Ingredient) (float64, error) {
	if sku.SizeQuantity == nil {
		return 0, &ConversionError{From: sku.SizeUnit, To: ing.BaseUnit, Err: ErrInvalidQuantity}
	}
	size := *sku.SizeQuantity
	unit := sku.SizeUnit
	if unit == "" {
		unit = "each"
	}

	yield, err := Convert(size, unit, ing)
	if err == nil {
		return yield, nil
	}
	if !generic(sku.SizeUnit) {
		return 0, err
	}
	nq, nu, ok := SizeFromName(sku.Name)
	if !ok {
		return 0, err
	}
	perItem, nameErr := Convert(nq, nu, ing)
	if nameErr != nil {
		return 0, err
	}
	return size * perItem, nil
}
