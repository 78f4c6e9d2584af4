package webui

import (
	"html/template"
	"net/http"
	"strings"

	"qonnectme/internal/domain"
)

var (
	shellT    = template.Must(template.New("page").Parse(layout + shellBody))
	cardT     = template.Must(template.New("page").Parse(layout + cardBody))
	notFoundT = template.Must(template.New("page").Parse(layout + notFoundBody))
)

type shellData struct {
	Title string
}

type cardData struct {
	Title    string
	Profile  domain.Profile
	Initials string
}

func renderShell(w http.ResponseWriter, status int, title string) {
	render(w, status, shellT, shellData{Title: title})
}

func renderProfileCard(w http.ResponseWriter, p domain.Profile) {
	title := p.Name
	if title == "" {
		title = "@" + p.Username
	}
	render(w, http.StatusOK, cardT, cardData{Title: title, Profile: p, Initials: initials(p)})
}

func renderNotFound(w http.ResponseWriter) {
	render(w, http.StatusNotFound, notFoundT, shellData{Title: "User Not Found"})
}

func render(w http.ResponseWriter, status int, t *template.Template, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = t.Execute(w, data)
}

func initials(p domain.Profile) string {
	src := strings.TrimSpace(p.Name)
	if src == "" {
		src = p.Username
	}
	var out []rune
	for _, f := range strings.Fields(src) {
		out = append(out, []rune(strings.ToUpper(f))[0])
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

const layout = `{{define "layout"}}<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>{{.Title}}</title>
    <style>
      :root{
        --bg:#0b0b12;
        --ink:#f8fafc;
        --muted:#cbd5f5;
        --accent:#6366f1;
        --accent-2:#22d3ee;
        --card:rgba(15,23,42,0.85);
        --line:rgba(148,163,184,0.25);
        --shadow:0 18px 40px rgba(2,6,23,0.6);
        color-scheme:dark;
      }
      *{box-sizing:border-box}
      body{
        margin:0;
        font-family:"Helvetica Neue",Arial,sans-serif;
        color:var(--ink);
        background:var(--bg);
        min-height:100vh;
      }
      header{
        display:flex;
        align-items:center;
        justify-content:space-between;
        gap:16px;
        padding:24px clamp(20px,4vw,64px);
      }
      .logo{
        font-weight:700;
        font-size:18px;
        text-decoration:none;
        color:inherit;
      }
      .nav{display:flex;gap:10px;flex-wrap:wrap}
      .nav a{
        text-decoration:none;
        font-weight:600;
        font-size:13px;
        padding:8px 14px;
        border-radius:999px;
        border:1px solid var(--line);
        background:var(--card);
        color:var(--ink);
      }
      main{
        max-width:720px;
        margin:0 auto;
        padding:0 clamp(20px,4vw,64px) 80px;
      }
      .card{
        background:var(--card);
        border:1px solid var(--line);
        border-radius:20px;
        padding:28px;
        box-shadow:var(--shadow);
        text-align:center;
      }
      .avatar{
        width:112px;
        height:112px;
        border-radius:50%;
        object-fit:cover;
        margin:0 auto 16px;
        display:flex;
        align-items:center;
        justify-content:center;
        font-size:36px;
        font-weight:700;
        background:linear-gradient(135deg,var(--accent),var(--accent-2));
      }
      .handle{color:var(--muted);margin:0 0 12px}
      .bio{line-height:1.6;white-space:pre-line}
      .qr{margin-top:20px;border-radius:12px;background:white;padding:8px}
    </style>
  </head>
  <body>
    <header>
      <a class="logo" href="/">Qonnectme</a>
      <nav class="nav">
        <a href="/profile">Profile</a>
        <a href="/friends">Friends</a>
        <a href="/store">Store</a>
      </nav>
    </header>
    <main>{{template "body" .}}</main>
  </body>
</html>{{end}}`

const shellBody = `{{define "body"}}<div class="card" id="app"><h1>{{.Title}}</h1></div>{{end}}{{template "layout" .}}`

const cardBody = `{{define "body"}}<div class="card">
  {{if .Profile.AvatarURL}}<img class="avatar" src="{{.Profile.AvatarURL}}" alt="" />{{else}}<div class="avatar">{{.Initials}}</div>{{end}}
  <h1>{{.Profile.Name}}</h1>
  <p class="handle">@{{.Profile.Username}}</p>
  {{if .Profile.Bio}}<p class="bio">{{.Profile.Bio}}</p>{{end}}
  {{if .Profile.QRCodeURL}}<img class="qr" src="{{.Profile.QRCodeURL}}" alt="QR code for @{{.Profile.Username}}" width="200" height="200" />{{end}}
</div>{{end}}{{template "layout" .}}`

const notFoundBody = `{{define "body"}}<div class="card">
  <h1>User Not Found</h1>
  <p class="handle">No profile lives at this address.</p>
</div>{{end}}{{template "layout" .}}`
