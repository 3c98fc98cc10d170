package textutil

import (
	"strings"
	"unicode"
)

// Corporate-form abbreviations as they appear in bank customer exports.
// Keys and values are uppercase; matching happens on whole tokens only.
var abbreviations = map[string]string{
	"CT":   "CÔNG TY",
	"CTY":  "CÔNG TY",
	"TNHH": "TRÁCH NHIỆM HỮU HẠN",
	"CP":   "CỔ PHẦN",
	"TM":   "THƯƠNG MẠI",
	"DV":   "DỊCH VỤ",
	"XD":   "XÂY DỰNG",
	"KT":   "KỸ THUẬT",
	"ĐT":   "ĐẦU TƯ",
	"DT":   "ĐẦU TƯ",
	"CTGT": "CÔNG TRÌNH GIAO THÔNG",
	"MTV":  "MỘT THÀNH VIÊN",
	"VLXD": "VẬT LIỆU XÂY DỰNG",
	"SX":   "SẢN XUẤT",
	"GT":   "GIAO THÔNG",
}

// ExpandAbbreviations upper-cases a display name and rewrites known
// corporate-form abbreviations to their full forms. Tokens are split on
// whitespace and on the separators - / . which are preserved in place.
// Entries in extra take precedence over the built-in table.
func ExpandAbbreviations(name string, extra map[string]string) string {
	s := strings.ToUpper(CleanText(name))
	if s == "" {
		return ""
	}

	var out strings.Builder
	out.Grow(len(s) * 2)
	var token strings.Builder
	flush := func() {
		if token.Len() == 0 {
			return
		}
		out.WriteString(lookupAbbreviation(token.String(), extra))
		token.Reset()
	}
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' || r == '/' || r == '.' {
			flush()
			out.WriteRune(r)
			continue
		}
		token.WriteRune(r)
	}
	flush()
	return out.String()
}

func lookupAbbreviation(token string, extra map[string]string) string {
	if full, ok := extra[token]; ok {
		return full
	}
	if full, ok := abbreviations[token]; ok {
		return full
	}
	return token
}
