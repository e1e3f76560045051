package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/essodond/Evexticket/internal/domain"
)

// @Summary  List active cities
// @Success  200  {array}  domain.City
// @Router   /cities [get]
func (h *handler) listCities(c *gin.Context) {
	cities, err := h.svcs.Admin.ListCities(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	writeCachedJSON(c, cities, "public, max-age=300")
}

// @Summary  List routes
// @Param    company_id   query  int   false  "Company ID"
// @Param    active_only  query  bool  false  "Only active routes (default true)"
// @Success  200  {array}  domain.Route
// @Router   /routes [get]
func (h *handler) listRoutes(c *gin.Context) {
	companyID, ok := parseOptionalID(c, "company_id")
	if !ok {
		return
	}
	var id int64
	if companyID != nil {
		id = *companyID
	}

	routes, err := h.svcs.Admin.ListRoutes(c.Request.Context(), id, c.Query("active_only") != "false")
	if err != nil {
		respondErr(c, err)
		return
	}
	writeCachedJSON(c, routes, "public, max-age=60")
}

// @Summary  Get route with its ordered stops
// @Param    id  path  int  true  "Route ID"
// @Success  200  {object}  admin.RouteView
// @Failure  404  {object}  ErrorResponse
// @Router   /routes/{id} [get]
func (h *handler) getRoute(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	view, err := h.svcs.Admin.GetRoute(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	writeCachedJSON(c, view, "public, max-age=60")
}

// @Summary  Resolve free-text endpoints to stops of a route
// @Param    id           path   int     true  "Route ID"
// @Param    origin       query  string  true  "Origin city name or id"
// @Param    destination  query  string  true  "Destination city name or id"
// @Success  200  {object}  ResolveResponse
// @Failure  400  {object}  ErrorResponse  "invalid_segment"
// @Failure  404  {object}  ErrorResponse  "stop_not_found"
// @Router   /routes/{id}/resolve [get]
func (h *handler) resolveSegment(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	seg, err := h.svcs.Query.ResolveSegment(c.Request.Context(), id, c.Query("origin"), c.Query("destination"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, ResolveResponse{
		RouteID:     id,
		WholeRoute:  seg.Whole(),
		Origin:      seg.Origin,
		Destination: seg.Destination,
	})
}

// @Summary  Seat availability of a run
// @Param    id                   path   int     true   "Route ID"
// @Param    date                 query  string  true   "Travel date (YYYY-MM-DD)"
// @Param    origin_stop_id       query  int     false  "Origin stop"
// @Param    destination_stop_id  query  int     false  "Destination stop"
// @Success  200  {object}  AvailabilityResponse
// @Failure  409  {object}  ErrorResponse  "run_inactive"
// @Router   /routes/{id}/availability [get]
func (h *handler) availability(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	date, ok := parseDateQuery(c, "date", true)
	if !ok {
		return
	}
	origin, ok := parseOptionalID(c, "origin_stop_id")
	if !ok {
		return
	}
	dest, ok := parseOptionalID(c, "destination_stop_id")
	if !ok {
		return
	}

	a, err := h.svcs.Query.Availability(c.Request.Context(), id, date, origin, dest)
	if err != nil {
		respondErr(c, err)
		return
	}

	occupied := a.OccupiedSeats
	if occupied == nil {
		occupied = []string{}
	}
	writeCachedJSON(c, AvailabilityResponse{
		RouteID:           id,
		TravelDate:        date.Format(domain.DateLayout),
		OriginStopID:      origin,
		DestinationStopID: dest,
		OccupiedSeats:     occupied,
		AvailableSeats:    a.AvailableSeats,
		Capacity:          a.Capacity,
	}, "no-cache")
}

// @Summary  Fare between two stops of a route
// @Param    id                   path   int  true   "Route ID"
// @Param    origin_stop_id       query  int  false  "Origin stop"
// @Param    destination_stop_id  query  int  false  "Destination stop"
// @Success  200  {object}  PriceResponse
// @Router   /routes/{id}/price [get]
func (h *handler) segmentPrice(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	origin, ok := parseOptionalID(c, "origin_stop_id")
	if !ok {
		return
	}
	dest, ok := parseOptionalID(c, "destination_stop_id")
	if !ok {
		return
	}

	price, err := h.svcs.Query.SegmentPrice(c.Request.Context(), id, origin, dest)
	if err != nil {
		respondErr(c, err)
		return
	}
	writeCachedJSON(c, PriceResponse{
		RouteID:           id,
		OriginStopID:      origin,
		DestinationStopID: dest,
		Price:             price,
	}, "public, max-age=60")
}

// @Summary  Search runs of a date between two cities
// @Param    departure   query  string  true   "Departure city"
// @Param    arrival     query  string  true   "Arrival city"
// @Param    date        query  string  true   "Travel date (YYYY-MM-DD)"
// @Param    passengers  query  int     false  "Seats needed (default 1)"
// @Success  200  {array}  search.Result
// @Router   /search [get]
func (h *handler) searchRuns(c *gin.Context) {
	departure, arrival := c.Query("departure"), c.Query("arrival")
	if departure == "" || arrival == "" {
		badRequest(c, "departure and arrival are required")
		return
	}
	date, ok := parseDateQuery(c, "date", true)
	if !ok {
		return
	}
	passengers := parseIntDefault(c.Query("passengers"), 1)

	results, err := h.svcs.Query.SearchRuns(c.Request.Context(), departure, arrival, date, passengers)
	if err != nil {
		respondErr(c, err)
		return
	}
	writeCachedJSON(c, results, "public, max-age=15")
}
