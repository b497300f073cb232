// Package icon implements the pictographic passcodes students sign in with:
// an ordered sequence of 4 icons drawn from a fixed catalog of 24.
package icon

// ID identifies an icon of the Catalog, from 1 to 24.
type ID int

type Icon struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Glyph string `json:"glyph"`
}

// SequenceLen is the number of icons in a passcode.
const SequenceLen = 4

// Catalog must stay in sync with the student sign-in app.
var Catalog = [...]Icon{
	{ID: 1, Name: "apple", Glyph: "🍎"},
	{ID: 2, Name: "banana", Glyph: "🍌"},
	{ID: 3, Name: "orange", Glyph: "🍊"},
	{ID: 4, Name: "strawberry", Glyph: "🍓"},
	{ID: 5, Name: "cat", Glyph: "🐱"},
	{ID: 6, Name: "dog", Glyph: "🐶"},
	{ID: 7, Name: "bird", Glyph: "🐦"},
	{ID: 8, Name: "rabbit", Glyph: "🐰"},
	{ID: 9, Name: "book", Glyph: "📚"},
	{ID: 10, Name: "pencil", Glyph: "✏️"},
	{ID: 11, Name: "ball", Glyph: "⚽"},
	{ID: 12, Name: "car", Glyph: "🚗"},
	{ID: 13, Name: "sun", Glyph: "☀️"},
	{ID: 14, Name: "moon", Glyph: "🌙"},
	{ID: 15, Name: "star", Glyph: "⭐"},
	{ID: 16, Name: "heart", Glyph: "❤️"},
	{ID: 17, Name: "house", Glyph: "🏠"},
	{ID: 18, Name: "tree", Glyph: "🌳"},
	{ID: 19, Name: "flower", Glyph: "🌸"},
	{ID: 20, Name: "fish", Glyph: "🐟"},
	{ID: 21, Name: "bear", Glyph: "🐻"},
	{ID: 22, Name: "lion", Glyph: "🦁"},
	{ID: 23, Name: "elephant", Glyph: "🐘"},
	{ID: 24, Name: "butterfly", Glyph: "🦋"},
}

const unknownGlyph = "?"

func (id ID) Valid() bool { return id >= 1 && int(id) <= len(Catalog) }

// ByID returns the icon with the given id. Catalog[i] has ID i+1.
func ByID(id ID) (Icon, bool) {
	if !id.Valid() {
		return Icon{}, false
	}
	return Catalog[id-1], true
}

// Glyph returns the emoji of id, or "?" for ids outside the Catalog.
func Glyph(id ID) string {
	if ic, ok := ByID(id); ok {
		return ic.Glyph
	}
	return unknownGlyph
}

// AllIDs returns a fresh slice of every catalog id, in catalog order.
func AllIDs() []ID {
	ids := make([]ID, len(Catalog))
	for i, ic := range Catalog {
		ids[i] = ic.ID
	}
	return ids
}
