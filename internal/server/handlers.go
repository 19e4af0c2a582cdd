package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/san-kum/mandelscope/internal/config"
	"github.com/san-kum/mandelscope/internal/fractal"
	"github.com/san-kum/mandelscope/internal/palette"
	"github.com/san-kum/mandelscope/internal/preset"
	"github.com/san-kum/mandelscope/internal/raster"
)

type renderRequest struct {
	view    fractal.View
	scheme  palette.Scheme
	res     int
	workers int
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fractal.InvalidParameter(key, v)
	}
	return f, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fractal.InvalidParameter(key, v)
	}
	return n, nil
}

// parseRender reads the rendering parameters. Resolution is capped at the
// server maximum; the worker count is capped at the server's own.
func (s *Server) parseRender(r *http.Request, base fractal.View, scheme palette.Scheme) (renderRequest, error) {
	q := r.URL.Query()
	req := renderRequest{view: base, scheme: scheme}

	if name := q.Get("view"); name != "" {
		v, ok := config.GetPreset(name)
		if !ok {
			return req, fractal.InvalidParameter("view", name)
		}
		req.view = v
	}

	var err error
	v := &req.view
	if v.CenterX, err = queryFloat(r, "cx", v.CenterX); err != nil {
		return req, err
	}
	if v.CenterY, err = queryFloat(r, "cy", v.CenterY); err != nil {
		return req, err
	}
	if v.Zoom, err = queryFloat(r, "zoom", v.Zoom); err != nil {
		return req, err
	}
	if v.MaxIterations, err = queryInt(r, "iter", v.MaxIterations); err != nil {
		return req, err
	}
	if j := q.Get("julia"); j != "" {
		if v.Julia, err = strconv.ParseBool(j); err != nil {
			return req, fractal.InvalidParameter("julia", j)
		}
	}
	if v.JuliaX, err = queryFloat(r, "jx", v.JuliaX); err != nil {
		return req, err
	}
	if v.JuliaY, err = queryFloat(r, "jy", v.JuliaY); err != nil {
		return req, err
	}
	if err := v.Validate(); err != nil {
		return req, err
	}

	if name := q.Get("scheme"); name != "" {
		sc, err := palette.ByName(name)
		if err != nil {
			return req, fractal.InvalidParameter("scheme", name)
		}
		req.scheme = sc
	}

	if req.res, err = queryInt(r, "res", DefaultResolution); err != nil {
		return req, err
	}
	if req.res < 1 {
		return req, fractal.InvalidParameter("res", req.res)
	}
	req.res = min(req.res, s.maxRes)

	if req.workers, err = queryInt(r, "workers", s.workers); err != nil {
		return req, err
	}
	req.workers = min(max(req.workers, 1), s.workers)
	return req, nil
}

func (s *Server) writeImage(w http.ResponseWriter, req renderRequest) {
	buf, err := raster.Render(req.view, req.scheme, req.res, req.workers)
	if err != nil {
		writeError(w, status(err), err)
		return
	}
	data, err := s.encodePNG(buf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRender(r, fractal.DefaultView(), palette.NewHue())
	if err != nil {
		writeError(w, status(err), err)
		return
	}
	s.writeImage(w, req)
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRender(r, fractal.DefaultView(), palette.NewHue())
	if err != nil {
		writeError(w, status(err), err)
		return
	}
	data, err := preset.Encode(req.view, req.scheme)
	if err != nil {
		writeError(w, status(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "view"+preset.Ext))
	_, _ = w.Write(data)
}

// handlePresetRender renders a posted preset. Query parameters other than
// the view fields (res, workers) still apply.
func (s *Server) handlePresetRender(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPresetBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	v, sc, err := preset.Decode(data)
	if err != nil {
		writeError(w, status(err), err)
		return
	}

	req := renderRequest{view: v, scheme: sc}
	if req.res, err = queryInt(r, "res", DefaultResolution); err != nil || req.res < 1 {
		writeError(w, http.StatusBadRequest, fractal.InvalidParameter("res", r.URL.Query().Get("res")))
		return
	}
	req.res = min(req.res, s.maxRes)
	req.workers = s.workers
	s.writeImage(w, req)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"views":   config.ListPresets(),
		"schemes": palette.Names(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
