package sync

import (
	"mime"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/charset"
)

// DateLayout is the display format for message dates, always 17 columns.
const DateLayout = "Jan 02 - 03:04 pm"

// headerFields are the fields requested from the server, in lower case.
var headerFields = []string{"from", "subject", "date"}

var senderRe = regexp.MustCompile(`^"?([^<]*?)"? <.*`)

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// DecodeHeader decodes RFC 2047 encoded words. Undecodable input is
// returned as is.
func DecodeHeader(s string) string {
	out, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}

// ExtractSender returns the display name of a From value such as
// `"Jane Doe" <jane@example.com>`. Values without a display name are
// returned unchanged.
func ExtractSender(from string) string {
	from = strings.TrimSpace(DecodeHeader(from))
	m := senderRe.FindStringSubmatch(from)
	if m == nil {
		return from
	}
	return m[1]
}

// FormatDate parses an RFC 5322 date, dropping any trailing comment like
// "(UTC)", and formats it in loc. Unparsable dates yield "".
func FormatDate(raw string, loc *time.Location) string {
	if i := strings.IndexByte(raw, '('); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	t, err := mail.ParseDate(raw)
	if err != nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// IsSeen reports whether a space-joined flag list includes \Seen.
func IsSeen(flags string) bool {
	return strings.Contains(flags, "Seen")
}
