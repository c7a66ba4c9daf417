package aegis

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/evanhutnik/aegis-service/internal/graph"
	"github.com/evanhutnik/aegis-service/internal/planner"
	t "github.com/evanhutnik/aegis-service/internal/types"
	"github.com/gorilla/mux"
)

const noRoutesMessage = "Unable to score any route for the selected areas"

type RoutesResponse struct {
	Error  string          `json:"error,omitempty"`
	Routes []t.RouteOption `json:"routes"`
	Count  int             `json:"count"`
}

type AreaResponse struct {
	Area      t.AreaID   `json:"areaNumber"`
	Name      string     `json:"name"`
	Neighbors []t.AreaID `json:"neighbors"`
}

type AreasResponse struct {
	Areas []AreaResponse `json:"areas"`
	Count int            `json:"count"`
}

func (s *Service) RoutesHandler(w http.ResponseWriter, r *http.Request) {
	resp, err := s.Routes(r.Context(), r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, resp)
}

func (s *Service) Routes(ctx context.Context, r *http.Request) (*RoutesResponse, error) {
	var req RouteRequest
	if err := s.decode(r, &req); err != nil {
		return nil, err
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	routes, err := s.planner.PlanRoutes(ctx, planner.Request{
		Start:   t.AreaID(req.StartArea),
		End:     t.AreaID(req.EndArea),
		Context: t.TimeContext{Month: req.Month, Hour: req.Hour, Year: req.Year},
	})
	if err != nil {
		return nil, s.plannerError(err, "PlanRoutes")
	}

	resp := &RoutesResponse{Routes: routes, Count: len(routes)}
	if len(routes) == 0 {
		resp.Routes = []t.RouteOption{}
		resp.Error = noRoutesMessage
		s.Logger.Warnw(noRoutesMessage, "start", req.StartArea, "end", req.EndArea)
	}
	return resp, nil
}

func (s *Service) AreasHandler(w http.ResponseWriter, r *http.Request) {
	g := s.planner.Graph()
	resp := AreasResponse{Areas: make([]AreaResponse, 0, g.Len())}
	for _, area := range g.Areas() {
		resp.Areas = append(resp.Areas, AreaResponse{
			Area:      area,
			Name:      "Area " + strconv.Itoa(int(area)),
			Neighbors: g.Neighbors(area),
		})
	}
	resp.Count = len(resp.Areas)
	s.writeResponse(w, resp)
}

func (s *Service) CompareHandler(w http.ResponseWriter, r *http.Request) {
	req := CompareRequest{}
	q := r.URL.Query()
	fields := map[string]*int{"a": &req.A, "b": &req.B, "month": &req.Month, "hour": &req.Hour, "year": &req.Year}
	if err := parseInts(fields, q.Get); err != nil {
		s.writeError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.writeError(w, err)
		return
	}

	tc := t.TimeContext{Month: req.Month, Hour: req.Hour, Year: req.Year}
	cmp, err := s.planner.Compare(r.Context(), t.AreaID(req.A), t.AreaID(req.B), tc)
	if err != nil {
		s.writeError(w, s.plannerError(err, "Compare"))
		return
	}
	s.writeResponse(w, cmp)
}

func (s *Service) TrendsHandler(w http.ResponseWriter, r *http.Request) {
	req := TrendsRequest{}
	q := r.URL.Query()
	get := func(name string) string {
		if name == "id" {
			return mux.Vars(r)["id"]
		}
		return q.Get(name)
	}
	fields := map[string]*int{"id": &req.Area, "year": &req.Year, "month": &req.Month}
	if err := parseInts(fields, get); err != nil {
		s.writeError(w, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		s.writeError(w, err)
		return
	}

	trends, err := s.planner.Trends(r.Context(), t.AreaID(req.Area), req.Year, req.Month)
	if err != nil {
		s.writeError(w, s.plannerError(err, "Trends"))
		return
	}
	s.writeResponse(w, trends)
}

// parseInts fills each destination from its named parameter. Missing
// parameters are left at zero for validation to report.
func parseInts(fields map[string]*int, get func(string) string) error {
	for name, dst := range fields {
		raw := get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return CodeError{code: http.StatusBadRequest, msg: "'" + name + "' parameter must be an integer"}
		}
		*dst = v
	}
	return nil
}

// plannerError maps planner failures onto HTTP responses.
func (s *Service) plannerError(err error, action string) error {
	switch {
	case errors.Is(err, graph.ErrSameArea):
		return CodeError{code: http.StatusBadRequest, msg: "Start and end locations must be different"}
	case errors.Is(err, graph.ErrInvalidArea):
		return CodeError{code: http.StatusBadRequest, msg: "Invalid community area selected"}
	case errors.Is(err, planner.ErrInvalidTimeContext):
		return CodeError{code: http.StatusBadRequest, msg: err.Error()}
	case errors.Is(err, graph.ErrNoPath):
		return CodeError{code: http.StatusUnprocessableEntity, msg: "No route connects the selected areas"}
	case errors.Is(err, context.DeadlineExceeded):
		return CodeError{code: http.StatusGatewayTimeout, msg: "Timed out fetching severity data"}
	case errors.Is(err, context.Canceled):
		return CodeError{code: http.StatusServiceUnavailable, msg: "Request cancelled"}
	}
	s.Logger.Errorw(err.Error(), "action", action)
	return CodeError{code: http.StatusBadGateway, msg: "Unable to fetch severity data"}
}
