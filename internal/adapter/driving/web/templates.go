package web

import (
	"html/template"
	"log/slog"
	"net/http"
)

// The flow has three static pages; inline templates keep the adapter
// self-contained without an asset pipeline.

const pageShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Splitgate</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 40rem; margin: 4rem auto; padding: 0 1rem; color: #1a202c; }
  a.button { display: inline-block; padding: .6rem 1.2rem; background: #38a169; color: #fff; border-radius: .4rem; text-decoration: none; }
  code { background: #edf2f7; padding: .2rem .4rem; border-radius: .3rem; word-break: break-all; }
  .error { color: #c53030; }
</style>
</head>
<body>
{{template "content" .}}
</body>
</html>`

var landingTmpl = template.Must(template.New("landing").Parse(pageShell + `
{{define "content"}}
<h1>Splitgate</h1>
<p>Connect your Splitwise account to use it from your assistant.
Authorization happens on Splitwise; this gateway never sees your password.</p>
<p><a class="button" href="/authorize">Connect Splitwise</a></p>
{{end}}`))

type successData struct {
	UserName string
	MCPURL   string
}

var successTmpl = template.Must(template.New("success").Parse(pageShell + `
{{define "content"}}
<h1>Connected!</h1>
<p>Hi {{.UserName}}, your Splitwise account is now linked.</p>
<p>Point your MCP client at your personal endpoint:</p>
<p><code>{{.MCPURL}}</code></p>
<p>Treat this URL like a password. Authorizing again replaces it.</p>
{{end}}`))

type errorData struct {
	Message string
}

var errorTmpl = template.Must(template.New("error").Parse(pageShell + `
{{define "content"}}
<h1 class="error">Authorization failed</h1>
<p>{{.Message}}</p>
<p><a href="/">Back to start</a></p>
{{end}}`))

// renderPage executes tmpl into the response. Template errors after the
// header is written can only be logged.
func renderPage(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		slog.Error("render page failed", "template", tmpl.Name(), "error", err)
	}
}
