package xlstream

import (
	"fmt"
	"strings"
)

// Default font attributes used when a style does not set them.
const (
	DefaultFontSize  = 11
	DefaultFontColor = ColorBlack
	DefaultFontName  = "Arial"
)

// Common colors, as RGB hex strings.
const (
	ColorBlack  = "000000"
	ColorWhite  = "FFFFFF"
	ColorRed    = "FF0000"
	ColorGreen  = "00B050"
	ColorBlue   = "0070C0"
	ColorYellow = "FFFF00"
	ColorOrange = "FFC000"
)

type styleAttr uint16

const (
	attrBold styleAttr = 1 << iota
	attrItalic
	attrUnderline
	attrStrikethrough
	attrFontSize
	attrFontColor
	attrFontName
	attrWrapText
	attrBackground
)

// Style is an immutable set of cell formatting attributes. Build one with a
// StyleBuilder. The zero value, like NewStyle, sets nothing.
type Style struct {
	set        styleAttr
	bold       bool
	italic     bool
	underline  bool
	strike     bool
	wrapText   bool
	fontSize   float64
	fontColor  string
	fontName   string
	background string
}

// NewStyle returns a style with no attribute set.
func NewStyle() *Style { return &Style{} }

func (s *Style) has(a styleAttr) bool { return s.set&a != 0 }

// IsFontBold reports whether text is bold.
func (s *Style) IsFontBold() bool { return s.bold }

// IsFontItalic reports whether text is italic.
func (s *Style) IsFontItalic() bool { return s.italic }

// IsFontUnderline reports whether text is underlined.
func (s *Style) IsFontUnderline() bool { return s.underline }

// IsFontStrikethrough reports whether text is struck through.
func (s *Style) IsFontStrikethrough() bool { return s.strike }

// ShouldWrapText reports whether text wraps inside the cell.
func (s *Style) ShouldWrapText() bool { return s.wrapText }

// HasBackgroundColor reports whether a fill color is set.
func (s *Style) HasBackgroundColor() bool { return s.has(attrBackground) }

// HasSetWrapText reports whether wrap text was set explicitly, to true or false.
func (s *Style) HasSetWrapText() bool { return s.has(attrWrapText) }

// FontSize returns the font size in points.
func (s *Style) FontSize() float64 {
	if s.has(attrFontSize) {
		return s.fontSize
	}
	return DefaultFontSize
}

// FontColor returns the RGB hex font color.
func (s *Style) FontColor() string {
	if s.has(attrFontColor) {
		return s.fontColor
	}
	return DefaultFontColor
}

// FontName returns the font family name.
func (s *Style) FontName() string {
	if s.has(attrFontName) {
		return s.fontName
	}
	return DefaultFontName
}

// BackgroundColor returns the RGB hex fill color, or "" when none is set.
func (s *Style) BackgroundColor() string { return s.background }

// MergeWith returns a new style using base for every attribute the receiver
// does not set. Attributes set on the receiver win. A nil base returns a copy
// of the receiver.
func (s *Style) MergeWith(base *Style) *Style {
	merged := *s
	if base == nil {
		return &merged
	}
	take := base.set &^ s.set
	if take&attrBold != 0 {
		merged.bold = base.bold
	}
	if take&attrItalic != 0 {
		merged.italic = base.italic
	}
	if take&attrUnderline != 0 {
		merged.underline = base.underline
	}
	if take&attrStrikethrough != 0 {
		merged.strike = base.strike
	}
	if take&attrWrapText != 0 {
		merged.wrapText = base.wrapText
	}
	if take&attrFontSize != 0 {
		merged.fontSize = base.fontSize
	}
	if take&attrFontColor != 0 {
		merged.fontColor = base.fontColor
	}
	if take&attrFontName != 0 {
		merged.fontName = base.fontName
	}
	if take&attrBackground != 0 {
		merged.background = base.background
	}
	merged.set |= take
	return &merged
}

// withWrapText returns a copy with wrap text enabled.
func (s *Style) withWrapText() *Style {
	c := *s
	c.wrapText = true
	c.set |= attrWrapText
	return &c
}

// key identifies the rendered appearance of a style. Two styles with the same
// key are registered once per workbook.
func (s *Style) key() string {
	var b strings.Builder
	flag := func(v bool) byte {
		if v {
			return '1'
		}
		return '0'
	}
	b.WriteByte(flag(s.bold))
	b.WriteByte(flag(s.italic))
	b.WriteByte(flag(s.underline))
	b.WriteByte(flag(s.strike))
	b.WriteByte(flag(s.wrapText))
	fmt.Fprintf(&b, "|%g|%s|%s|%s", s.FontSize(), s.FontColor(), s.FontName(), s.background)
	return b.String()
}

// StyleBuilder assembles a Style attribute by attribute.
type StyleBuilder struct {
	style Style
}

// NewStyleBuilder creates an empty builder.
func NewStyleBuilder() *StyleBuilder { return &StyleBuilder{} }

// SetFontBold makes text bold.
func (b *StyleBuilder) SetFontBold() *StyleBuilder {
	b.style.bold = true
	b.style.set |= attrBold
	return b
}

// SetFontItalic makes text italic.
func (b *StyleBuilder) SetFontItalic() *StyleBuilder {
	b.style.italic = true
	b.style.set |= attrItalic
	return b
}

// SetFontUnderline underlines text.
func (b *StyleBuilder) SetFontUnderline() *StyleBuilder {
	b.style.underline = true
	b.style.set |= attrUnderline
	return b
}

// SetFontStrikethrough strikes text through.
func (b *StyleBuilder) SetFontStrikethrough() *StyleBuilder {
	b.style.strike = true
	b.style.set |= attrStrikethrough
	return b
}

// SetFontSize sets the font size in points.
func (b *StyleBuilder) SetFontSize(size float64) *StyleBuilder {
	b.style.fontSize = size
	b.style.set |= attrFontSize
	return b
}

// SetFontColor sets the font color as an RGB hex string such as "FF0000"
// or "#ff0000". Anything else is ignored.
func (b *StyleBuilder) SetFontColor(rgb string) *StyleBuilder {
	if c, ok := normalizeColor(rgb); ok {
		b.style.fontColor = c
		b.style.set |= attrFontColor
	}
	return b
}

// SetFontName sets the font family name.
func (b *StyleBuilder) SetFontName(name string) *StyleBuilder {
	b.style.fontName = name
	b.style.set |= attrFontName
	return b
}

// SetShouldWrapText turns text wrapping on or off explicitly.
func (b *StyleBuilder) SetShouldWrapText(wrap bool) *StyleBuilder {
	b.style.wrapText = wrap
	b.style.set |= attrWrapText
	return b
}

// SetBackgroundColor sets a solid fill as an RGB hex string. Anything else
// is ignored.
func (b *StyleBuilder) SetBackgroundColor(rgb string) *StyleBuilder {
	if c, ok := normalizeColor(rgb); ok {
		b.style.background = c
		b.style.set |= attrBackground
	}
	return b
}

// normalizeColor accepts six hex digits with an optional leading '#'.
func normalizeColor(rgb string) (string, bool) {
	c := strings.ToUpper(strings.TrimPrefix(rgb, "#"))
	if len(c) != 6 {
		return "", false
	}
	for i := 0; i < len(c); i++ {
		if !(c[i] >= '0' && c[i] <= '9' || c[i] >= 'A' && c[i] <= 'F') {
			return "", false
		}
	}
	return c, true
}

// Build returns the assembled style. The builder can keep being used.
func (b *StyleBuilder) Build() *Style {
	s := b.style
	return &s
}
