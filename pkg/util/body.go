package util

import (
	"strconv"
	"unicode/utf8"
)

// MaxLogBodySize caps bodies stored in request history.
const MaxLogBodySize = 10 * 1024

// TruncateBody renders body as text of at most limit bytes followed by a
// marker giving the number of bytes dropped. The cut never splits a UTF-8
// sequence. A limit <= 0 means MaxLogBodySize.
func TruncateBody(body []byte, limit int) string {
	if limit <= 0 {
		limit = MaxLogBodySize
	}
	if len(body) <= limit {
		return string(body)
	}
	cut := limit
	for cut > 0 && cut > limit-utf8.UTFMax && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "...(" + strconv.Itoa(len(body)-cut) + " more bytes)"
}
