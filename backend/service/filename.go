package service

import (
	"strings"
	"unicode"

	"github.com/grantdesk/applicants/backend/model"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// letters with no canonical decomposition, so NFD leaves them intact
var transliterate = strings.NewReplacer(
	"Ł", "L", "ł", "l",
	"Ø", "O", "ø", "o",
	"Æ", "AE", "æ", "ae",
	"Œ", "OE", "œ", "oe",
	"Đ", "D", "đ", "d",
	"Ð", "D", "ð", "d",
	"Þ", "Th", "þ", "th",
	"ß", "ss",
	"ı", "i",
)

// SanitizeName strips diacritics, joins whitespace runs with "_" and drops
// anything that is not safe in a download filename.
func SanitizeName(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s = transliterate.Replace(s)
	plain, _, err := transform.String(stripMarks, s)
	if err != nil {
		plain = s
	}

	joined := strings.Join(strings.Fields(plain), "_")
	var b strings.Builder
	for _, r := range joined {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._-")
}

// AttachmentFilename returns "<Label>_<Name>.<ext>" for a delivered document
func AttachmentFilename(kind model.DocumentKind, subject *model.Subject, format model.DocumentFormat) string {
	label := SanitizeName(kind.Label())
	name := ""
	if subject != nil {
		name = SanitizeName(subject.DisplayName())
	}
	if name == "" {
		return label + format.Ext()
	}
	return label + "_" + name + format.Ext()
}
