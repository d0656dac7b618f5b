package admin

import (
	"html/template"
	"net/http"
)

// HTML pages for the admin surface. The surface is deliberately
// minimal: sign-in, first-run initialization, and a list overview.
// Everything else goes through the JSON API.

var signInPage = template.Must(template.New("signin").Parse(`<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
<form id="signin">
  <label>Identity <input name="identity" autofocus></label>
  <label>Secret <input name="secret" type="password"></label>
  <button type="submit">Sign in</button>
  <p id="error"></p>
</form>
<script>
document.getElementById('signin').addEventListener('submit', async (e) => {
  e.preventDefault();
  const form = new FormData(e.target);
  const res = await fetch('/signin', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({identity: form.get('identity'), secret: form.get('secret')})
  });
  if (res.ok) { window.location = '/'; return; }
  const body = await res.json();
  document.getElementById('error').textContent = body.error;
});
</script>
</body>
</html>`))

var initPage = template.Must(template.New("init").Parse(`<!DOCTYPE html>
<html>
<head><title>Welcome</title></head>
<body>
<h1>Create the first {{.ListKey}}</h1>
<form id="init">
{{range .Fields}}  <label>{{.}} <input name="{{.}}"></label>
{{end}}  <button type="submit">Create</button>
  <p id="error"></p>
</form>
<script>
document.getElementById('init').addEventListener('submit', async (e) => {
  e.preventDefault();
  const data = {};
  for (const [k, v] of new FormData(e.target)) { if (v !== '') data[k] = v; }
  const res = await fetch('/init', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(data)
  });
  if (res.ok) { window.location = '/'; return; }
  const body = await res.json();
  document.getElementById('error').textContent = body.error;
});
</script>
</body>
</html>`))

var homePage = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html>
<head><title>Admin</title></head>
<body>
<h1>Lists</h1>
<ul>
{{range .Lists}}  <li><a href="/api/{{.}}">{{.}}</a></li>
{{end}}</ul>
{{if .SignedIn}}<form method="POST" action="/signout"><button>Sign out</button></form>{{end}}
</body>
</html>`))

// handleSignInPage serves the sign-in form. Signed-in users go home.
func (s *Server) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	if currentSession(r) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	// First run: send the user to initialization instead.
	if required, err := s.engine.InitRequired(r.Context()); err == nil && required {
		http.Redirect(w, r, "/init", http.StatusFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	signInPage.Execute(w, nil)
}

// handleInitPage serves the first-run form while initialization is
// open, and 410 Gone forever after.
func (s *Server) handleInitPage(w http.ResponseWriter, r *http.Request) {
	required, err := s.engine.InitRequired(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !required {
		writeError(w, http.StatusGone, "initialization is closed")
		return
	}

	a := s.engine.Config().Auth
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	initPage.Execute(w, map[string]any{
		"ListKey": a.ListKey,
		"Fields":  a.InitFirstItem.Fields,
	})
}

// handleHome serves the list overview.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if !wantsHTML(r) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	var keys []string
	for _, d := range s.engine.Lists() {
		keys = append(keys, d.Source.Key)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	homePage.Execute(w, map[string]any{
		"Lists":    keys,
		"SignedIn": currentSession(r) != nil,
	})
}
