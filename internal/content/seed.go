package content

// Default corpus inserted on first run so a fresh server can host races
// without any import step.
var seedTexts = []Text{
	{Language: "en", Difficulty: "easy", Content: "The quick brown fox jumps over the lazy dog while the sun sets behind the hills."},
	{Language: "en", Difficulty: "easy", Content: "A small boat drifted down the calm river as birds sang in the morning light."},
	{Language: "en", Difficulty: "medium", Content: "Typing quickly requires rhythm and patience; accuracy matters far more than raw bursts of speed over a long race."},
	{Language: "en", Difficulty: "medium", Content: "The library smelled of old paper and quiet ambition, its shelves bending under decades of collected thought."},
	{Language: "en", Difficulty: "hard", Content: "Pseudoscientific jargon, hyphenated qualifiers, and awkward punctuation -- semicolons included; parentheses too (naturally) -- separate practiced typists from beginners."},
	{Language: "es", Difficulty: "easy", Content: "El gato duerme al sol mientras los ninos juegan en el parque cerca de la fuente."},
	{Language: "es", Difficulty: "medium", Content: "Escribir rapido exige practica diaria; la precision importa mas que la velocidad durante una carrera larga."},
	{Language: "ca", Difficulty: "easy", Content: "El tren surt a primera hora del mati i travessa la plana fins arribar al mar."},
}

var seedWords = map[string][]string{
	"en": {"keyboard", "velocity", "monster", "practice", "rhythm", "accuracy"},
	"es": {"teclado", "velocidad", "monstruo", "practica", "ritmo"},
	"ca": {"teclat", "velocitat", "monstre", "practica"},
}
