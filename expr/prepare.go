package expr

import "strings"

// PiLiteral is the literal substituted for pi by Preprocess.
const PiLiteral = "3.14159265"

var preprocessor = strings.NewReplacer("pi", PiLiteral, "Pi", PiLiteral)

// Preprocess applies the historical rewrites to function text:
// first ** becomes ^, then every occurrence of "pi" and "Pi" is replaced
// by PiLiteral. The replacement is purely textual and case-sensitive, so it
// also rewrites identifiers containing those substrings (for example a
// parameter named "Pivot"). Choose parameter names accordingly.
func Preprocess(text string) string {
	text = strings.ReplaceAll(text, "**", "^")
	return preprocessor.Replace(text)
}
