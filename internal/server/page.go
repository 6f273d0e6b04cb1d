// internal/server/page.go
package server

import (
	"html/template"
	"net/http"

	"github.com/colebrumley/regexlab/internal/session"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>regexlab</title>
<style>
.highlight { background: #ffe066; }
.error { color: #b00020; }
.warning { color: #8a6d00; }
pre { white-space: pre-wrap; }
</style>
</head>
<body>
<p><code>/{{.State.Regex}}/{{.State.Flags}}</code> depth {{.State.Depth}}, {{len .State.Sources}} sources</p>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Warning}}<p class="warning">{{.Warning}}</p>{{end}}
<h2>Matches</h2>
<pre id="match-panel">{{.Match}}</pre>
<h2>Replacement</h2>
<div id="replace-panel">{{.Replace}}</div>
</body>
</html>
`))

type pageData struct {
	session.Result
	Match   template.HTML
	Replace template.HTML
}

// handlePage renders both panels. The match panel is escaped text plus
// highlight spans and the replace panel has been through the sanitizer.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res := s.sess.Result()
	s.mu.Unlock()

	data := pageData{
		Result:  res,
		Match:   template.HTML(res.Panels.Match),
		Replace: template.HTML(res.Panels.Replace),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("rendering page failed", "error", err)
	}
}
