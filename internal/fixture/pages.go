// Package fixture serves pages that speak the render-ready contract, for the
// render CLI and for tests that drive a real browser.
package fixture

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Variant selects how a fixture page behaves.
type Variant string

const (
	// Ready shows the marker and then sets the ready attribute.
	Ready Variant = "ready"
	// NoReadyFlag shows the marker but never sets the ready attribute.
	NoReadyFlag Variant = "no-ready-flag"
	// NoMarker never renders the marker element.
	NoMarker Variant = "no-marker"
	// HiddenMarker renders the marker with display:none.
	HiddenMarker Variant = "hidden-marker"
	// LiveSocket is Ready plus a page script that keeps a websocket open.
	LiveSocket Variant = "live-socket"
)

// Page is the data rendered into the fixture template.
type Page struct {
	TaskID         string
	Variant        Variant
	MarkerID       string
	ReadyAttribute string
	MarkerDelay    time.Duration
	ReadyDelay     time.Duration
}

func (p Page) ShowMarker() bool { return p.Variant != NoMarker }

func (p Page) HideMarker() bool { return p.Variant == HiddenMarker }

func (p Page) SetFlag() bool { return p.Variant != NoReadyFlag && p.Variant != NoMarker }

func (p Page) OpenSocket() bool { return p.Variant == LiveSocket }

func (p Page) MarkerDelayMs() int64 { return p.MarkerDelay.Milliseconds() }

func (p Page) ReadyDelayMs() int64 { return p.ReadyDelay.Milliseconds() }

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Resume {{.TaskID}}</title>
<style>
  body { font-family: sans-serif; margin: 0; background: #fff; }
  .sheet { width: 794px; min-height: 1123px; margin: 0 auto; padding: 48px; box-sizing: border-box; }
  h1 { color: #1f3a5f; }
</style>
</head>
<body>
<div id="app">Loading…</div>
<script>
(function () {
  var app = document.getElementById("app");
  {{if .OpenSocket}}
  try { new WebSocket("ws://" + location.host + "/live"); } catch (e) {}
  {{end}}
  console.warn("fixture page booting for task {{.TaskID}}");
  {{if .ShowMarker}}
  setTimeout(function () {
    app.innerHTML = "";
    var sheet = document.createElement("div");
    sheet.id = {{.MarkerID}};
    sheet.className = "sheet";
    {{if .HideMarker}}sheet.style.display = "none";{{end}}
    var h = document.createElement("h1");
    h.textContent = "Task " + {{.TaskID}};
    sheet.appendChild(h);
    var p = document.createElement("p");
    p.textContent = "Rendered resume for " + {{.TaskID}} + ".";
    sheet.appendChild(p);
    app.appendChild(sheet);
    {{if .SetFlag}}
    setTimeout(function () {
      document.body.setAttribute({{.ReadyAttribute}}, "true");
    }, {{.ReadyDelayMs}});
    {{end}}
  }, {{.MarkerDelayMs}});
  {{end}}
})();
</script>
</body>
</html>
`))

// Server routes:
//
//	/print/{task}?variant=...   fixture page for task
//	/missing                    404
//	/live                       never upgrades; holds the connection open
type Server struct {
	MarkerID       string
	ReadyAttribute string
	MarkerDelay    time.Duration
	ReadyDelay     time.Duration
}

// NewServer returns a fixture server for the given contract.
func NewServer(markerID, readyAttribute string) *Server {
	return &Server{
		MarkerID:       strings.TrimPrefix(markerID, "#"),
		ReadyAttribute: readyAttribute,
		MarkerDelay:    150 * time.Millisecond,
		ReadyDelay:     150 * time.Millisecond,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/print/", s.servePrint)
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such resume", http.StatusNotFound)
	})
	mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	return mux
}

func (s *Server) servePrint(w http.ResponseWriter, r *http.Request) {
	task := strings.TrimPrefix(r.URL.Path, "/print/")
	if task == "" {
		http.NotFound(w, r)
		return
	}
	variant := Variant(r.URL.Query().Get("variant"))
	if variant == "" {
		variant = Ready
	}
	page := Page{
		TaskID:         task,
		Variant:        variant,
		MarkerID:       s.MarkerID,
		ReadyAttribute: s.ReadyAttribute,
		MarkerDelay:    s.MarkerDelay,
		ReadyDelay:     s.ReadyDelay,
	}
	if d, err := strconv.Atoi(r.URL.Query().Get("delay_ms")); err == nil && d >= 0 {
		page.MarkerDelay = time.Duration(d) * time.Millisecond
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, page); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// URL returns the fixture URL of task on base (e.g. an httptest server URL).
func URL(base, task string, v Variant) string {
	return strings.TrimRight(base, "/") + "/print/" + task + "?variant=" + string(v)
}
