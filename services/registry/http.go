package registry

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/datamelt/fengine"
	"github.com/datamelt/fengine/services/httpd"
	jsonpatch "github.com/evanphx/json-patch"
	"github.com/pkg/errors"
)

const (
	functionsPath         = "/functions"
	functionPath          = functionsPath + "/:name"
	functionEvaluatePath  = functionPath + "/evaluate"
	functionSamplePath    = functionPath + "/sample"
	functionIntegratePath = functionPath + "/integrate"
	functionDiffPath      = functionPath + "/differentiate"
	functionVolumePath    = functionPath + "/volume"
	functionParamsPath    = functionPath + "/parameters"
	functionExprPath      = functionPath + "/expression"
	functionSymbolicPath  = functionPath + "/symbolic/:op"
	functionBinsPath      = functionPath + "/bins"

	// maxBodySize bounds request bodies.
	maxBodySize = 1 << 20
)

func (s *Service) routes() []httpd.Route {
	return []httpd.Route{
		{Method: "GET", Pattern: functionsPath, HandlerFunc: s.handleListFunctions},
		{Method: "POST", Pattern: functionsPath, HandlerFunc: s.handleCreateFunction},
		{Method: "GET", Pattern: functionPath, HandlerFunc: s.handleGetFunction},
		{Method: "PATCH", Pattern: functionPath, HandlerFunc: s.handlePatchFunction},
		{Method: "DELETE", Pattern: functionPath, HandlerFunc: s.handleDeleteFunction},
		{Method: "POST", Pattern: functionEvaluatePath, HandlerFunc: s.handleEvaluate},
		{Method: "POST", Pattern: functionSamplePath, HandlerFunc: s.handleSample},
		{Method: "POST", Pattern: functionIntegratePath, HandlerFunc: s.handleIntegrate},
		{Method: "POST", Pattern: functionDiffPath, HandlerFunc: s.handleDifferentiate},
		{Method: "POST", Pattern: functionVolumePath, HandlerFunc: s.handleVolume},
		{Method: "POST", Pattern: functionParamsPath, HandlerFunc: s.handleSetParameters},
		{Method: "POST", Pattern: functionExprPath, HandlerFunc: s.handleSetExpression},
		{Method: "POST", Pattern: functionSymbolicPath, HandlerFunc: s.handleSymbolic},
		{Method: "GET", Pattern: functionBinsPath, HandlerFunc: s.handleBins},
	}
}

// writeError maps registry errors to their status and everything else to
// the status of its fengine kind.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoFunctionExists):
		httpd.HttpError(w, err.Error(), true, http.StatusNotFound)
	case errors.Is(err, ErrFunctionExists):
		httpd.HttpError(w, err.Error(), true, http.StatusConflict)
	case errors.Is(err, ErrInvalidDefinition), errors.Is(err, ErrWrongDimension),
		errors.Is(err, ErrTooManyPoints):
		httpd.HttpError(w, err.Error(), true, http.StatusBadRequest)
	default:
		httpd.HttpKindError(w, err, true)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		httpd.HttpError(w, "invalid JSON: "+err.Error(), true, http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	w.Write(httpd.MarshalJSON(v, true))
}

// writeInfo writes the function state, a parse failure of a mutation is
// reported with the state it left behind.
func writeInfo(w http.ResponseWriter, info Info, err error) {
	if err != nil {
		if info.Name == "" || fengine.KindOf(err) != fengine.KindParse {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, info)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Service) handleListFunctions(w http.ResponseWriter, r *http.Request) {
	infos, err := s.List(r.URL.Query().Get("pattern"))
	if err != nil {
		httpd.HttpError(w, "invalid pattern: "+err.Error(), true, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Functions []Info `json:"functions"`
	}{Functions: infos})
}

func (s *Service) handleCreateFunction(w http.ResponseWriter, r *http.Request) {
	var def Definition
	if !decodeBody(w, r, &def) {
		return
	}
	if def.Dimension == 0 {
		def.Dimension = 1
	}
	define := s.Define
	if replace, _ := strconv.ParseBool(r.URL.Query().Get("replace")); replace {
		define = s.Redefine
	}
	info, err := define(def)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Service) handleGetFunction(w http.ResponseWriter, r *http.Request) {
	info, err := s.Get(httpd.Param(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handlePatchFunction applies a JSON patch (RFC 6902) to the definition and
// redefines the function from the result.
func (s *Service) handlePatchFunction(w http.ResponseWriter, r *http.Request) {
	name := httpd.Param(r, "name")
	info, err := s.Get(name)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := ioutil.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		httpd.HttpError(w, "failed to read request body: "+err.Error(), true, http.StatusBadRequest)
		return
	}
	patch, err := jsonpatch.DecodePatch(body)
	if err != nil {
		httpd.HttpError(w, "invalid patch json: "+err.Error(), true, http.StatusBadRequest)
		return
	}
	current, err := json.Marshal(info.Definition)
	if err != nil {
		httpd.HttpError(w, "failed to marshal JSON: "+err.Error(), true, http.StatusInternalServerError)
		return
	}
	patched, err := patch.Apply(current)
	if err != nil {
		httpd.HttpError(w, "failed to apply patch: "+err.Error(), true, http.StatusBadRequest)
		return
	}
	var def Definition
	if err := json.Unmarshal(patched, &def); err != nil {
		httpd.HttpError(w, "invalid patched definition: "+err.Error(), true, http.StatusBadRequest)
		return
	}
	if def.Name != name {
		httpd.HttpError(w, "cannot rename function "+name, true, http.StatusBadRequest)
		return
	}
	info, err = s.Redefine(def)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Service) handleDeleteFunction(w http.ResponseWriter, r *http.Request) {
	if err := s.Delete(httpd.Param(r, "name")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X []float64 `json:"x"`
		Y []float64 `json:"y"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.Evaluate(httpd.Param(r, "name"), req.X, req.Y)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Service) handleSample(w http.ResponseWriter, r *http.Request) {
	var req SampleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sample, err := s.Sample(r.Context(), httpd.Param(r, "name"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

type valueResponse struct {
	Value float64 `json:"value"`
}

func (s *Service) handleIntegrate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method    string  `json:"method"`
		Intervals int     `json:"intervals"`
		Min       float64 `json:"min"`
		Max       float64 `json:"max"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := s.Integrate(httpd.Param(r, "name"), req.Method, req.Intervals, req.Min, req.Max)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Value: v})
}

func (s *Service) handleDifferentiate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Points int     `json:"points"`
		Min    float64 `json:"min"`
		Max    float64 `json:"max"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	values, err := s.Differentiate(httpd.Param(r, "name"), req.Points, req.Min, req.Max)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Values []float64 `json:"values"`
	}{Values: values})
}

func (s *Service) handleVolume(w http.ResponseWriter, r *http.Request) {
	name := httpd.Param(r, "name")
	var req struct {
		Intervals  int    `json:"intervals"`
		IntervalsY int    `json:"intervals_y"`
		Range      *Range `json:"range"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Range == nil {
		info, err := s.Get(name)
		if err != nil {
			writeError(w, err)
			return
		}
		req.Range = &Range{XMin: info.XMin, XMax: info.XMax, YMin: info.YMin, YMax: info.YMax}
	}
	if req.IntervalsY == 0 {
		req.IntervalsY = req.Intervals
	}
	v, err := s.Volume(name, req.Intervals, req.IntervalsY, *req.Range)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Value: v})
}

func (s *Service) handleSetParameters(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Parameters map[string]float64 `json:"parameters"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	info, err := s.SetParameters(httpd.Param(r, "name"), req.Parameters)
	writeInfo(w, info, err)
}

func (s *Service) handleSetExpression(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expression string `json:"expression"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	info, err := s.SetExpression(httpd.Param(r, "name"), req.Expression)
	writeInfo(w, info, err)
}

func (s *Service) handleSymbolic(w http.ResponseWriter, r *http.Request) {
	name := httpd.Param(r, "name")
	switch op := httpd.Param(r, "op"); op {
	case fengine.OpMathML, fengine.OpSource:
		out, err := s.Render(name, op)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Output string `json:"output"`
		}{Output: out})
	default:
		info, err := s.Transform(name, op)
		writeInfo(w, info, err)
	}
}

func (s *Service) handleBins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		req BinsRequest
		err error
	)
	if req.Bins, err = queryInt(q.Get("bins")); err != nil {
		httpd.HttpError(w, "invalid bins: "+err.Error(), true, http.StatusBadRequest)
		return
	}
	if req.BinsY, err = queryInt(q.Get("bins_y")); err != nil {
		httpd.HttpError(w, "invalid bins_y: "+err.Error(), true, http.StatusBadRequest)
		return
	}
	if q.Get("x_min") != "" || q.Get("x_max") != "" {
		var rng Range
		for _, b := range []struct {
			key string
			v   *float64
		}{
			{"x_min", &rng.XMin},
			{"x_max", &rng.XMax},
			{"y_min", &rng.YMin},
			{"y_max", &rng.YMax},
		} {
			if *b.v, err = queryFloat(q.Get(b.key)); err != nil {
				httpd.HttpError(w, "invalid "+b.key+": "+err.Error(), true, http.StatusBadRequest)
				return
			}
		}
		req.Range = &rng
	}
	bins, err := s.Bins(httpd.Param(r, "name"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bins)
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func queryFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
