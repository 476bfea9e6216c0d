// Package hsppredictor estimates Hansen solubility parameters for a solvent
// directly from its SMILES string.  The pipeline is descriptor featurization
// followed by per-target linear regression heads whose weights are loaded
// from a JSON model file, so retrained models ship as data, not code.
package hsppredictor

import (
	"regexp"
	"strings"

	"github.com/turtacn/mixingcompass/pkg/errors"
)

// ---------------------------------------------------------------------------
// Descriptor feature encoding
// ---------------------------------------------------------------------------

// Feature vector layout, total dimension = 16:
//
//	[0]  heavy atom count (normalised by /20)
//	[1]  carbon count (/20)
//	[2]  nitrogen count (/5)
//	[3]  oxygen count (/5)
//	[4]  sulfur count (/3)
//	[5]  halogen count F+Cl+Br+I (/5)
//	[6]  aromatic atom count (/12)
//	[7]  ring closure count (/4)
//	[8]  double bond count (/5)
//	[9]  triple bond count (/3)
//	[10] hydroxyl group count (/3)
//	[11] carbonyl group count (/3)
//	[12] ester/ether oxygen count (/4)
//	[13] nitrile group count (/2)
//	[14] branching count, open parens (/6)
//	[15] fraction of heteroatoms among heavy atoms
const FeatureDim = 16

var validSMILESChars = regexp.MustCompile(`^[A-Za-z0-9@+\-\[\]()=#/\\%.*]+$`)

// two-letter organic subset symbols that must be consumed before single
// letters when counting atoms.
var twoLetterAtoms = []string{"Cl", "Br", "Si", "Se"}

// Featurize converts a SMILES string into its descriptor vector.  The parse
// is a lightweight lexical scan, not a full graph perception: good enough for
// the linear regression heads, and dependency-free.
func Featurize(smiles string) ([]float64, error) {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return nil, errors.New(errors.ErrCodePredictorInvalidSMILES, "SMILES string cannot be empty")
	}
	if !validSMILESChars.MatchString(smiles) {
		return nil, errors.Newf(errors.ErrCodePredictorInvalidSMILES,
			"SMILES contains invalid characters: %s", smiles)
	}
	if err := validateBrackets(smiles); err != nil {
		return nil, err
	}

	c := countAtoms(smiles)

	heavy := c.carbon + c.nitrogen + c.oxygen + c.sulfur + c.halogen + c.other
	if heavy == 0 {
		return nil, errors.Newf(errors.ErrCodePredictorInvalidSMILES,
			"SMILES has no heavy atoms: %s", smiles)
	}
	hetero := heavy - c.carbon

	f := make([]float64, FeatureDim)
	f[0] = float64(heavy) / 20
	f[1] = float64(c.carbon) / 20
	f[2] = float64(c.nitrogen) / 5
	f[3] = float64(c.oxygen) / 5
	f[4] = float64(c.sulfur) / 3
	f[5] = float64(c.halogen) / 5
	f[6] = float64(c.aromatic) / 12
	f[7] = float64(c.rings) / 4
	f[8] = float64(c.doubleBonds) / 5
	f[9] = float64(c.tripleBonds) / 3
	f[10] = float64(c.hydroxyl) / 3
	f[11] = float64(c.carbonyl) / 3
	f[12] = float64(c.etherOxygen) / 4
	f[13] = float64(c.nitrile) / 2
	f[14] = float64(c.branches) / 6
	f[15] = float64(hetero) / float64(heavy)
	return f, nil
}

type atomCounts struct {
	carbon      int
	nitrogen    int
	oxygen      int
	sulfur      int
	halogen     int
	other       int
	aromatic    int
	rings       int
	doubleBonds int
	tripleBonds int
	hydroxyl    int
	carbonyl    int
	etherOxygen int
	nitrile     int
	branches    int
}

func countAtoms(smiles string) atomCounts {
	var c atomCounts

	// Functional group patterns run on the raw string first; the lexical
	// scan below would lose adjacency information.
	c.hydroxyl = strings.Count(smiles, "O)") + boolToInt(strings.HasSuffix(smiles, "O")) +
		strings.Count(smiles, "[OH]")
	c.carbonyl = strings.Count(smiles, "C(=O)") + strings.Count(smiles, "C=O")
	c.nitrile = strings.Count(smiles, "C#N") + strings.Count(smiles, "N#C")

	i := 0
	for i < len(smiles) {
		// Bracket atoms count as a single (possibly charged) atom.
		if smiles[i] == '[' {
			end := strings.IndexByte(smiles[i:], ']')
			if end < 0 {
				break
			}
			classifyAtom(smiles[i+1:i+end], &c)
			i += end + 1
			continue
		}

		matched := false
		for _, sym := range twoLetterAtoms {
			if strings.HasPrefix(smiles[i:], sym) {
				classifyAtom(sym, &c)
				i += len(sym)
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		ch := smiles[i]
		switch {
		case ch >= '1' && ch <= '9':
			// Ring closure digits come in pairs; count openings only by
			// halving at the end.
			c.rings++
		case ch == '=':
			c.doubleBonds++
		case ch == '#':
			c.tripleBonds++
		case ch == '(':
			c.branches++
		case (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z'):
			classifyAtom(string(ch), &c)
		default:
			// ')' and structural characters: '.', '/', '\', '%', '*'
		}
		i++
	}

	c.rings /= 2
	return c
}

// classifyAtom tallies one atom symbol.  Lowercase symbols are aromatic per
// SMILES convention and count both as their element and as aromatic.
func classifyAtom(sym string, c *atomCounts) {
	// Strip charges, hydrogens and isotope digits from bracket-atom bodies.
	sym = strings.TrimFunc(sym, func(r rune) bool {
		return r == '+' || r == '-' || r == '@' || (r >= '0' && r <= '9')
	})
	sym = strings.TrimSuffix(sym, "H")
	if sym == "" {
		return
	}

	lower := sym == strings.ToLower(sym) && len(sym) == 1
	if lower {
		c.aromatic++
	}

	switch strings.ToUpper(sym) {
	case "C":
		c.carbon++
	case "N":
		c.nitrogen++
	case "O":
		c.oxygen++
		if !lower {
			// Heuristic: non-aromatic oxygen not already claimed by a
			// carbonyl is an ether/ester oxygen candidate.
			c.etherOxygen++
		}
	case "S":
		c.sulfur++
	case "F", "CL", "BR", "I":
		c.halogen++
	case "H":
		// explicit hydrogens carry no descriptor weight
	default:
		c.other++
	}
}

func validateBrackets(smiles string) error {
	var stack []byte
	closers := map[byte]byte{')': '(', ']': '['}
	for i := 0; i < len(smiles); i++ {
		ch := smiles[i]
		if ch == '(' || ch == '[' {
			stack = append(stack, ch)
		} else if expected, ok := closers[ch]; ok {
			if len(stack) == 0 || stack[len(stack)-1] != expected {
				return errors.Newf(errors.ErrCodePredictorInvalidSMILES,
					"unmatched brackets in SMILES: %s", smiles)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 0 {
		return errors.Newf(errors.ErrCodePredictorInvalidSMILES,
			"unclosed brackets in SMILES: %s", smiles)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
