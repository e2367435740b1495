package password

import "unicode"

// Policy define los requisitos para credenciales nuevas del motor
// embebido. El zero value acepta cualquier password: el gating del broker
// es por invitación, la policy es opt-in del deployment.
type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// Validate chequea plain contra la policy. reasons lista cada requisito
// incumplido con códigos estables (van tal cual en la respuesta 400).
func (p Policy) Validate(plain string) (ok bool, reasons []string) {
	if len([]rune(plain)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}

	var upper, lower, digit, symbol bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if p.RequireUpper && !upper {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !lower {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !digit {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !symbol {
		reasons = append(reasons, "missing_symbol")
	}
	return len(reasons) == 0, reasons
}
