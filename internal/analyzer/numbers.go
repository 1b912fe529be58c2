package analyzer

import (
	"fmt"
	"math/big"
	"strings"
)

// parseRadixInteger parses the normalized digit string produced by the
// scanner/parser for a LiteralInteger (radix defaults to 10 when the
// token carried no `NNNr` prefix), mapping 'a'-'z'/'A'-'Z' to digit
// values 10-35 the same way the reference parser's manual
// parseIntegerConstant does.
func parseRadixInteger(radix int, digits string) (*big.Int, error) {
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return nil, fmt.Errorf("Invalid integer radix: %d", radix)
	}
	digits = strings.TrimSpace(digits)
	if digits == "" {
		return nil, fmt.Errorf("Empty integer literal")
	}
	result := new(big.Int)
	base := big.NewInt(int64(radix))
	for _, r := range digits {
		var digit int
		switch {
		case r >= '0' && r <= '9':
			digit = int(r - '0')
		case r >= 'a' && r <= 'z':
			digit = int(r-'a') + 10
		case r >= 'A' && r <= 'Z':
			digit = int(r-'A') + 10
		default:
			return nil, fmt.Errorf("Invalid digit %q in base-%d integer literal", r, radix)
		}
		if digit >= radix {
			return nil, fmt.Errorf("Digit %q out of range for base-%d integer literal", r, radix)
		}
		result.Mul(result, base)
		result.Add(result, big.NewInt(int64(digit)))
	}
	return result, nil
}
