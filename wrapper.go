package svgpng

import (
	"strings"
	"text/template"
)

// WrapperPadding is the body padding around the SVG, in CSS pixels.
// The dimension probe adds the same amount on every side.
const WrapperPadding = 20

var wrapperTmpl = template.Must(template.New("wrapper").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  html, body { margin: 0; background: {{.Background}}; }
  body { padding: {{.Padding}}px; }
  svg { display: block; max-width: 100%; height: auto; }
</style>
</head>
<body>
{{.SVG}}
</body>
</html>
`))

type wrapperData struct {
	Background string
	Padding    int
	SVG        string
}

// BuildWrapper embeds svg verbatim in a standalone HTML document whose
// background is transparent or white.
func BuildWrapper(svg string, transparent bool) string {
	bg := "white"
	if transparent {
		bg = "transparent"
	}
	var sb strings.Builder
	// The template only writes to a strings.Builder and cannot fail.
	_ = wrapperTmpl.Execute(&sb, wrapperData{Background: bg, Padding: WrapperPadding, SVG: svg})
	return sb.String()
}
