package translate

// Instruction lines the translation model was trained on. The model keys on
// these exact strings; do not reword them.
const (
	promptEnJa = "Translate to Japanese."
	promptJaEn = "Translate to English."
)

// FormatPrompt builds the model prompt for one request: the instruction
// line, a newline, then the source text verbatim.
func FormatPrompt(dir Direction, text string) string {
	instruction := promptJaEn
	if dir == DirectionEnJa {
		instruction = promptEnJa
	}
	return instruction + "\n" + text
}
