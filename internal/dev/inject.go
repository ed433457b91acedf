package dev

import "bytes"

// injectionPoints are tried in order; the snippet goes before the first one
// present in the document.
var injectionPoints = [][]byte{
	[]byte("</head>"),
	[]byte("</body>"),
	[]byte("</html>"),
}

// Inject inserts snippet immediately before the first closing </head>,
// </body> or </html> tag, preferring them in that order. Documents with none
// of those tags are returned unchanged. Matching is exact and case-sensitive.
func Inject(html []byte, snippet string) []byte {
	for _, tag := range injectionPoints {
		idx := bytes.Index(html, tag)
		if idx < 0 {
			continue
		}
		out := make([]byte, 0, len(html)+len(snippet))
		out = append(out, html[:idx]...)
		out = append(out, snippet...)
		out = append(out, html[idx:]...)
		return out
	}
	return html
}
