package http

import (
	"net/http"

	"github.com/mind-engage/codelab/internal/telemetry"
)

// POST /action/hover  { "svg_name": "...", "hover_item": "..." }
func HoverHandler(t *telemetry.Counters, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, err := currentLearner(r)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		var req struct {
			SVGName   string `json:"svg_name"`
			HoverItem string `json:"hover_item"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			ew.Write(w, r, err)
			return
		}
		n, err := t.RecordHover(r.Context(), learner, req.SVGName, req.HoverItem)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"count": n})
	}
}

// POST /action/switch  { "directory": "...", "time_elpse": 1200 }
func PageSwitchHandler(t *telemetry.Counters, ew ErrorWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learner, err := currentLearner(r)
		if err != nil {
			ew.Write(w, r, err)
			return
		}
		var req struct {
			Directory string `json:"directory"`
			TimeElpse int64  `json:"time_elpse"` // sic, the front end sends this name
		}
		if err := decodeJSON(w, r, &req); err != nil {
			ew.Write(w, r, err)
			return
		}
		if err := t.RecordPageTime(r.Context(), learner, req.Directory, req.TimeElpse); err != nil {
			ew.Write(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
