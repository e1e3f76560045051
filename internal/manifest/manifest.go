// Package manifest renders passenger lists and ticket exports as PDF.
package manifest

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/essodond/Evexticket/internal/domain"
)

// Run is the passenger list of one dated run.
type Run struct {
	Route     domain.Route
	Date      time.Time
	Company   string
	Lines     []domain.TicketLine
	Generated time.Time
}

// Export is a filtered list of reservations across runs.
type Export struct {
	Filter    domain.TicketFilter
	Lines     []domain.TicketLine
	Generated time.Time
}

type column struct {
	title string
	width float64
	value func(l domain.TicketLine) string
}

var manifestColumns = []column{
	{"Seat", 18, func(l domain.TicketLine) string { return l.Reservation.SeatNumber }},
	{"Passenger", 52, func(l domain.TicketLine) string { return l.Reservation.PassengerName }},
	{"Phone", 32, func(l domain.TicketLine) string { return l.Reservation.PassengerPhone }},
	{"Boards", 30, func(l domain.TicketLine) string { return fallback(l.Origin, l.Departure) }},
	{"Alights", 30, func(l domain.TicketLine) string { return fallback(l.Destination, l.Arrival) }},
	{"Status", 22, func(l domain.TicketLine) string { return string(l.Reservation.Status) }},
}

var exportColumns = []column{
	{"#", 14, func(l domain.TicketLine) string { return fmt.Sprint(l.Reservation.ID) }},
	{"Date", 22, func(l domain.TicketLine) string { return l.Reservation.TravelDate.Format(domain.DateLayout) }},
	{"Company", 30, func(l domain.TicketLine) string { return l.CompanyName }},
	{"Segment", 52, func(l domain.TicketLine) string {
		return fallback(l.Origin, l.Departure) + " - " + fallback(l.Destination, l.Arrival)
	}},
	{"Seat", 14, func(l domain.TicketLine) string { return l.Reservation.SeatNumber }},
	{"Passenger", 38, func(l domain.TicketLine) string { return l.Reservation.PassengerName }},
	{"Status", 20, func(l domain.TicketLine) string { return string(l.Reservation.Status) }},
	{"Price", 22, func(l domain.TicketLine) string { return l.Reservation.TotalPrice.StringFixed(0) }},
}

// RenderRun prints the boarding list of a run, ordered by seat.
func RenderRun(m Run) ([]byte, error) {
	const op = "manifest.RenderRun"

	lines := append([]domain.TicketLine(nil), m.Lines...)
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Reservation.SeatNumber < lines[j].Reservation.SeatNumber
	})

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Passenger manifest", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(fmt.Sprintf("%s - %s", m.Route.DepartureCity, m.Route.ArrivalCity)))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(fmt.Sprintf("%s  |  %s %s  |  %s", m.Company, m.Date.Format(domain.DateLayout), m.Route.DepartureTime, m.Route.BusType)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Passengers: %d / %d", len(lines), m.Route.Capacity))
	pdf.Ln(10)

	table(pdf, tr, manifestColumns, lines)
	footer(pdf, m.Generated)

	out, err := output(pdf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// RenderExport prints a ticket export with a closing revenue line over the
// confirmed and completed reservations.
func RenderExport(e Export) ([]byte, error) {
	const op = "manifest.RenderExport"

	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Tickets", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Tickets")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr(describe(e.Filter)))
	pdf.Ln(10)

	table(pdf, tr, exportColumns, e.Lines)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, fmt.Sprintf("%d tickets, revenue %s", len(e.Lines), Revenue(e.Lines).StringFixed(0)))
	pdf.Ln(6)

	footer(pdf, e.Generated)

	out, err := output(pdf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func table(pdf *gofpdf.Fpdf, tr func(string) string, cols []column, lines []domain.TicketLine) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	if len(lines) == 0 {
		pdf.CellFormat(width(cols), 7, "No reservations", "1", 1, "C", false, 0, "")
		return
	}

	for _, l := range lines {
		for _, c := range cols {
			pdf.CellFormat(c.width, 6, tr(clip(c.value(l), c.width)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func footer(pdf *gofpdf.Fpdf, at time.Time) {
	if at.IsZero() {
		return
	}
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 5, "Generated "+at.Format("2006-01-02 15:04 MST"))
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func width(cols []column) float64 {
	w := 0.0
	for _, c := range cols {
		w += c.width
	}
	return w
}

// clip keeps roughly what fits in a cell of w millimetres at 9pt.
func clip(s string, w float64) string {
	n := int(w / 1.9)
	r := []rune(s)
	if len(r) <= n || n < 2 {
		return s
	}
	return string(r[:n-1]) + "."
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func describe(f domain.TicketFilter) string {
	out := "All dates"
	switch {
	case !f.From.IsZero() && !f.To.IsZero():
		out = f.From.Format(domain.DateLayout) + " to " + f.To.Format(domain.DateLayout)
	case !f.From.IsZero():
		out = "From " + f.From.Format(domain.DateLayout)
	case !f.To.IsZero():
		out = "Until " + f.To.Format(domain.DateLayout)
	}
	if f.CompanyID != 0 {
		out += fmt.Sprintf(", company %d", f.CompanyID)
	}
	if f.RouteID != 0 {
		out += fmt.Sprintf(", route %d", f.RouteID)
	}
	if f.Status != "" {
		out += ", " + string(f.Status)
	}
	return out
}
