package web

import (
	"bytes"
	"encoding/json"
	"html/template"
)

var shellTmpl = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<base href="{{.Base}}">
<title>{{.Title}}</title>
</head>
<body>
<div id="app" data-route="{{.Route}}"></div>
<script id="initial-state" type="application/json">{{.State}}</script>
</body>
</html>
`))

// bootstrap is what a page embeds for the client to hydrate from.
type bootstrap struct {
	Path        string                 `json:"path"`
	Route       string                 `json:"route,omitempty"`
	Title       string                 `json:"title"`
	Collections map[string]interface{} `json:"collections"`
}

type shellData struct {
	Base  string
	Title string
	Route string
	State template.JS
}

func renderShell(base string, b bootstrap) ([]byte, error) {
	// json.Marshal escapes <, > and & so the payload cannot close the script tag
	state, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = shellTmpl.Execute(&buf, shellData{
		Base:  base,
		Title: b.Title,
		Route: b.Route,
		State: template.JS(state),
	})
	return buf.Bytes(), err
}
