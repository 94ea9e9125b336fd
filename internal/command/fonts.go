package command

import "strings"

type font struct {
	name string
	// upper, lower and digit are the code points of 'A', 'a' and '0'; zero
	// keeps the character unchanged.
	upper, lower, digit rune
	// exceptions replace characters that live outside the contiguous block.
	exceptions map[rune]rune
}

func (f font) convert(s string) string {
	return strings.Map(func(r rune) rune {
		if e, ok := f.exceptions[r]; ok {
			return e
		}
		switch {
		case r >= 'A' && r <= 'Z' && f.upper != 0:
			return f.upper + r - 'A'
		case r >= 'a' && r <= 'z' && f.lower != 0:
			return f.lower + r - 'a'
		case r >= '0' && r <= '9' && f.digit != 0:
			return f.digit + r - '0'
		}
		return r
	}, s)
}

var smallCaps = func() map[rune]rune {
	m := make(map[rune]rune, 52)
	for i, r := range []rune("ᴀʙᴄᴅᴇꜰɢʜɪᴊᴋʟᴍɴᴏᴘǫʀꜱᴛᴜᴠᴡxʏᴢ") {
		m['a'+rune(i)] = r
		m['A'+rune(i)] = r
	}
	return m
}()

var circledDigits = func() map[rune]rune {
	m := map[rune]rune{'0': 0x24EA}
	for r := '1'; r <= '9'; r++ {
		m[r] = 0x2460 + r - '1'
	}
	return m
}()

var fonts = []font{
	{name: "Bold", upper: 0x1D400, lower: 0x1D41A, digit: 0x1D7CE},
	{name: "Italic", upper: 0x1D434, lower: 0x1D44E, exceptions: map[rune]rune{'h': 0x210E}},
	{name: "Bold Italic", upper: 0x1D468, lower: 0x1D482},
	{name: "Script", upper: 0x1D49C, lower: 0x1D4B6, exceptions: map[rune]rune{
		'B': 0x212C, 'E': 0x2130, 'F': 0x2131, 'H': 0x210B, 'I': 0x2110, 'L': 0x2112,
		'M': 0x2133, 'R': 0x211B, 'e': 0x212F, 'g': 0x210A, 'o': 0x2134,
	}},
	{name: "Bold Script", upper: 0x1D4D0, lower: 0x1D4EA},
	{name: "Fraktur", upper: 0x1D504, lower: 0x1D51E, exceptions: map[rune]rune{
		'C': 0x212D, 'H': 0x210C, 'I': 0x2111, 'R': 0x211C, 'Z': 0x2128,
	}},
	{name: "Double Struck", upper: 0x1D538, lower: 0x1D552, digit: 0x1D7D8, exceptions: map[rune]rune{
		'C': 0x2102, 'H': 0x210D, 'N': 0x2115, 'P': 0x2119, 'Q': 0x211A, 'R': 0x211D, 'Z': 0x2124,
	}},
	{name: "Sans Bold", upper: 0x1D5D4, lower: 0x1D5EE, digit: 0x1D7EC},
	{name: "Monospace", upper: 0x1D670, lower: 0x1D68A, digit: 0x1D7F6},
	{name: "Circled", upper: 0x24B6, lower: 0x24D0, exceptions: circledDigits},
	{name: "Fullwidth", upper: 0xFF21, lower: 0xFF41, digit: 0xFF10},
	{name: "Small Caps", exceptions: smallCaps},
}
