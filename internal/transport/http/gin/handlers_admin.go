package httpgin

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/essodond/Evexticket/internal/domain"
)

// @Summary  Create company
// @Param    req  body  CreateCompanyRequest  true  "payload"
// @Success  201  {object}  CreatedResponse
// @Failure  409  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /admin/companies [post]
func (h *handler) createCompany(c *gin.Context) {
	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	id, err := h.svcs.Admin.CreateCompany(c.Request.Context(), identity(c), domain.Company{
		Name:        req.Name,
		Description: req.Description,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		Website:     req.Website,
		Logo:        req.Logo,
		Active:      boolOr(req.Active, true),
		Admins:      req.Admins,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

// @Summary  Get company
// @Param    id  path  int  true  "Company ID"
// @Success  200  {object}  domain.Company
// @Security BearerAuth
// @Router   /admin/companies/{id} [get]
func (h *handler) getCompany(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	co, err := h.svcs.Admin.GetCompany(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

// @Summary  Grant company administration
// @Param    id   path  int              true  "Company ID"
// @Param    req  body  AddAdminRequest  true  "payload"
// @Success  204
// @Security BearerAuth
// @Router   /admin/companies/{id}/admins [post]
func (h *handler) addCompanyAdmin(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	var req AddAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	respondErr(c, h.svcs.Admin.AddCompanyAdmin(c.Request.Context(), identity(c), id, req.UserID))
}

// @Summary  Create city
// @Param    req  body  CreateCityRequest  true  "payload"
// @Success  201  {object}  CreatedResponse
// @Security BearerAuth
// @Router   /admin/cities [post]
func (h *handler) createCity(c *gin.Context) {
	var req CreateCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	id, err := h.svcs.Admin.CreateCity(c.Request.Context(), identity(c), domain.City{
		Name:   req.Name,
		Region: req.Region,
		Active: boolOr(req.Active, true),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

// @Summary  Create route with stops
// @Param    req  body  CreateRouteRequest  true  "payload"
// @Success  201  {object}  CreatedResponse
// @Failure  400  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /admin/routes [post]
func (h *handler) createRoute(c *gin.Context) {
	var req CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	id, err := h.svcs.Admin.CreateRoute(c.Request.Context(), identity(c), domain.Route{
		CompanyID:       req.CompanyID,
		DepartureCityID: req.DepartureCityID,
		ArrivalCityID:   req.ArrivalCityID,
		DepartureTime:   req.DepartureTime,
		ArrivalTime:     req.ArrivalTime,
		Price:           req.Price,
		DurationMin:     req.DurationMin,
		BusType:         domain.BusType(req.BusType),
		Capacity:        req.Capacity,
		Active:          boolOr(req.Active, true),
	}, stopsFromInput(req.Stops))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreatedResponse{ID: id})
}

// @Summary  Replace the stops of a route
// @Param    id   path  int                  true  "Route ID"
// @Param    req  body  ReplaceStopsRequest  true  "payload"
// @Success  204
// @Security BearerAuth
// @Router   /admin/routes/{id}/stops [put]
func (h *handler) replaceStops(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	var req ReplaceStopsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	respondErr(c, h.svcs.Admin.ReplaceStops(c.Request.Context(), identity(c), id, stopsFromInput(req.Stops)))
}

// @Summary  Publish or withdraw a route
// @Param    id   path  int               true  "Route ID"
// @Param    req  body  SetActiveRequest  true  "payload"
// @Success  204
// @Security BearerAuth
// @Router   /admin/routes/{id} [patch]
func (h *handler) setRouteActive(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	respondErr(c, h.svcs.Admin.SetRouteActive(c.Request.Context(), identity(c), id, *req.Active))
}

// @Summary  Generate the runs of a route over a window
// @Param    id   path  int                  true  "Route ID"
// @Param    req  body  GenerateRunsRequest  true  "payload"
// @Success  200  {object}  CountResponse
// @Failure  409  {object}  ErrorResponse  "route_inactive"
// @Security BearerAuth
// @Router   /admin/routes/{id}/runs [post]
func (h *handler) generateRuns(c *gin.Context) {
	if !identity(c).Staff {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return
	}
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	var req GenerateRunsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	offset := h.svcs.Runs.Defaults().StartOffset
	if req.StartOffset != nil {
		offset = *req.StartOffset
	}
	days := req.Days
	if days == 0 {
		days = h.svcs.Runs.Defaults().Days
	}

	n, err := h.svcs.Runs.EnsureRunsForWindow(c.Request.Context(), id, days, offset, h.clock.Today())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: n})
}

// @Summary  Delete the runs of a route dated before a day
// @Param    id      path   int     true   "Route ID"
// @Param    before  query  string  false  "Cutoff date (YYYY-MM-DD), default today"
// @Success  200  {object}  CountResponse
// @Security BearerAuth
// @Router   /admin/routes/{id}/runs [delete]
func (h *handler) pruneRuns(c *gin.Context) {
	if !identity(c).Staff {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return
	}
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	before, ok := parseDateQuery(c, "before", false)
	if !ok {
		return
	}
	if before.IsZero() {
		before = h.clock.Today()
	}

	n, err := h.svcs.Runs.PruneRunsBefore(c.Request.Context(), id, before)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, CountResponse{Count: n})
}

// @Summary  Open or close the run of a route on one date
// @Param    id    path  int               true  "Route ID"
// @Param    date  path  string            true  "Travel date (YYYY-MM-DD)"
// @Param    req   body  SetActiveRequest  true  "payload"
// @Success  200  {object}  domain.Run
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Security BearerAuth
// @Router   /admin/routes/{id}/runs/{date} [patch]
func (h *handler) setRunActive(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		badRequest(c, "invalid date (YYYY-MM-DD)")
		return
	}
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	run, err := h.svcs.Runs.SetRunActive(c.Request.Context(), identity(c), id, date, *req.Active)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// @Summary  Passenger manifest of a run (PDF)
// @Param    id    path   int     true  "Route ID"
// @Param    date  query  string  true  "Travel date (YYYY-MM-DD)"
// @Produce  application/pdf
// @Success  200
// @Security BearerAuth
// @Router   /admin/routes/{id}/manifest [get]
func (h *handler) runManifest(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	date, ok := parseDateQuery(c, "date", true)
	if !ok {
		return
	}
	pdf, err := h.svcs.Reports.RunManifest(c.Request.Context(), identity(c), id, date)
	if err != nil {
		respondErr(c, err)
		return
	}
	writePDF(c, fmt.Sprintf("manifest-%d-%s.pdf", id, date.Format(domain.DateLayout)), pdf)
}

// @Summary  Marketplace dashboard
// @Success  200  {object}  domain.Dashboard
// @Security BearerAuth
// @Router   /admin/dashboard [get]
func (h *handler) dashboard(c *gin.Context) {
	d, err := h.svcs.Reports.Dashboard(c.Request.Context(), identity(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary  Export tickets (PDF)
// @Param    from        query  string  false  "From date (YYYY-MM-DD)"
// @Param    to          query  string  false  "To date (YYYY-MM-DD)"
// @Param    company_id  query  int     false  "Company ID"
// @Param    route_id    query  int     false  "Route ID"
// @Param    status      query  string  false  "Reservation status"
// @Produce  application/pdf
// @Success  200
// @Security BearerAuth
// @Router   /admin/reports/tickets [get]
func (h *handler) exportTickets(c *gin.Context) {
	from, ok := parseDateQuery(c, "from", false)
	if !ok {
		return
	}
	to, ok := parseDateQuery(c, "to", false)
	if !ok {
		return
	}
	company, ok := parseOptionalID(c, "company_id")
	if !ok {
		return
	}
	route, ok := parseOptionalID(c, "route_id")
	if !ok {
		return
	}

	f := domain.TicketFilter{From: from, To: to}
	if company != nil {
		f.CompanyID = *company
	}
	if route != nil {
		f.RouteID = *route
	}
	if s := domain.ReservationStatus(c.Query("status")); s != "" {
		if !s.Valid() {
			badRequest(c, "invalid status")
			return
		}
		f.Status = s
	}

	pdf, err := h.svcs.Reports.ExportTickets(c.Request.Context(), identity(c), f)
	if err != nil {
		respondErr(c, err)
		return
	}
	writePDF(c, "tickets.pdf", pdf)
}
