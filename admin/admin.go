// Package admin provides the legacy HTML/JSON monitoring endpoints for
// chanrelay: a static dashboard served out of an embedded go.rice box, plus
// the JSON status API it polls.
package admin

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	rice "github.com/GeertJohan/go.rice"

	"github.com/relaypoll/chanrelay"
)

// adminStatusHTMLHandler serves the static dashboard page.
func adminStatusHTMLHandler(w http.ResponseWriter, r *http.Request) {
	box, err := rice.FindBox("views")
	if err != nil {
		log.Fatalf("error opening rice.Box: %s\n", err)
	}

	file, err := box.Open("admin.html")
	if err != nil {
		log.Fatalf("could not open file: %s\n", err)
	}

	fstat, err := file.Stat()
	if err != nil {
		log.Fatalf("could not stat file: %s\n", err)
	}

	http.ServeContent(w, r, fstat.Name(), fstat.ModTime(), file)
}

// adminStatusDataHandler serves the JSON status data polled by the page.
func adminStatusDataHandler(w http.ResponseWriter, r *http.Request, s *chanrelay.Server) {
	w.Header().Set("Content-Type", "application/json")
	b, _ := json.MarshalIndent(s.Status(), "", "  ")
	fmt.Fprint(w, string(b))
}

// Handler returns an http.Handler exposing /admin/ (dashboard) and
// /admin/status.json (JSON status) for s.
func Handler(s *chanrelay.Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/", adminStatusHTMLHandler)
	mux.HandleFunc("/admin/status.json", func(w http.ResponseWriter, r *http.Request) {
		adminStatusDataHandler(w, r, s)
	})
	return mux
}
