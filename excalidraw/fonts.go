package excalidraw

// Excalidraw font family ids
const (
	FontVirgil    = 1
	FontHelvetica = 2
	FontCascadia  = 3
)

// DefaultFontSize applies to text elements without a fontSize
const DefaultFontSize = 16.0

// FontFamily maps an Excalidraw font id to a CSS font-family stack
func FontFamily(id int) string {
	switch id {
	case FontVirgil:
		return "'Caveat', 'Comic Neue', cursive"
	case FontHelvetica:
		return "Helvetica, Arial, sans-serif"
	case FontCascadia:
		return "'Cascadia Code', 'Fira Code', monospace"
	default:
		return "'Caveat', cursive"
	}
}

// Font returns the element's CSS font family and its font size, defaulting
// to DefaultFontSize
func (e Element) Font() (family string, size float64) {
	id := 0
	if e.FontFamily != nil {
		id = *e.FontFamily
	}
	size = DefaultFontSize
	if e.FontSize != nil && *e.FontSize > 0 {
		size = *e.FontSize
	}
	return FontFamily(id), size
}
