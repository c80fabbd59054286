package view

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes text for fragments assembled outside html/template.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// ToastHTML renders one notice as a toast element.
func ToastHTML(msg string) string {
	return `<div class="toast show">` + EscapeHTML(msg) + `</div>`
}
