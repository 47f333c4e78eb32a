package expense

import (
	"context"
	"embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
)

//go:embed templates/index.html
var templateFS embed.FS

// Server wraps HTTP serving of the expense page, JSON API, CSV export and
// the live-update websocket.
type Server struct {
	httpServer *http.Server
	store      *Store
	hub        *hub
	tmpl       *template.Template
	logger     hclog.Logger
}

// NewServer creates a configured HTTP server over the store.
func NewServer(addr string, store *Store, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		store:      store,
		hub:        newHub(logger.Named("ws")),
		tmpl:       template.Must(template.ParseFS(templateFS, "templates/index.html")),
		logger:     logger,
	}
	s.registerRoutes(mux)
	return s
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down, closing live sockets first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.closeAll()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /add", s.handleAdd)
	mux.HandleFunc("POST /delete/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/expenses", s.handleAPIExpenses)
	mux.HandleFunc("GET /api/total", s.handleAPITotal)
	mux.HandleFunc("GET /download/month", s.handleDownloadMonth)
	mux.HandleFunc("GET /ws", s.handleWS)
}

type pageData struct {
	EntryDate  string
	FixedItems []Entry
	DailyItems []Entry
	FixedTotal float64
	DailyTotal float64
	Total      float64
	MonthTotal float64
	MonthLabel string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	date, err := normalizeDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, _, err := s.store.ForDate(date)
	if err != nil {
		s.serverError(w, "list expenses", err)
		return
	}

	data := pageData{EntryDate: date}
	for _, e := range entries {
		if e.ItemType == TypeFixed {
			data.FixedItems = append(data.FixedItems, e)
			data.FixedTotal += e.LineTotal()
		} else {
			data.DailyItems = append(data.DailyItems, e)
			data.DailyTotal += e.LineTotal()
		}
	}
	data.FixedTotal = round2(data.FixedTotal)
	data.DailyTotal = round2(data.DailyTotal)
	data.Total = round2(data.FixedTotal + data.DailyTotal)

	if data.MonthTotal, err = s.store.MonthTotal(date); err != nil {
		s.serverError(w, "month total", err)
		return
	}
	_, _, data.MonthLabel, _ = monthBounds(date)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.logger.Error("render index", "error", err)
	}
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}

	date, err := normalizeDate(r.PostFormValue("entry_date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.PostFormValue("item_name"))
	if name == "" {
		http.Error(w, "item_name is required", http.StatusBadRequest)
		return
	}

	itemType := strings.ToLower(strings.TrimSpace(r.PostFormValue("item_type")))
	if itemType == "" {
		itemType = TypeUtility
	}
	if !ValidType(itemType) {
		http.Error(w, fmt.Sprintf("unknown item_type %q", itemType), http.StatusBadRequest)
		return
	}

	unitPrice, err := strconv.ParseFloat(r.PostFormValue("unit_price"), 64)
	if err != nil {
		http.Error(w, "unit_price is required", http.StatusBadRequest)
		return
	}

	// Quantity defaults to 1 for everything but liquids, where the amount
	// is the point of the entry.
	quantityRaw := strings.TrimSpace(r.PostFormValue("quantity"))
	quantity := 1.0
	if quantityRaw != "" {
		if quantity, err = strconv.ParseFloat(quantityRaw, 64); err != nil {
			http.Error(w, "quantity must be a number", http.StatusBadRequest)
			return
		}
	} else if itemType == TypeLiquid {
		http.Error(w, "quantity is required", http.StatusBadRequest)
		return
	}

	if quantity < 0 || unitPrice < 0 {
		http.Error(w, "quantity and unit_price must be non-negative", http.StatusBadRequest)
		return
	}

	entry := Entry{
		EntryDate: date,
		ItemName:  name,
		ItemType:  itemType,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	if _, err := s.store.Add(entry); err != nil {
		s.serverError(w, "add expense", err)
		return
	}

	s.notifyChanged(date)
	http.Redirect(w, r, "/?date="+date, http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	date, err := normalizeDate(r.PostFormValue("entry_date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.store.Delete(id); err != nil {
		s.serverError(w, "delete expense", err)
		return
	}

	s.notifyChanged(date)
	http.Redirect(w, r, "/?date="+date, http.StatusSeeOther)
}

// apiItem is the JSON shape of one entry as served by the API and pushed
// over the websocket.
type apiItem struct {
	ID        int64   `json:"id"`
	Date      string  `json:"date"`
	ItemName  string  `json:"item_name"`
	ItemType  string  `json:"item_type"`
	Quantity  float64 `json:"quantity"`
	Unit      string  `json:"unit"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

type daySnapshot struct {
	Date  string    `json:"date"`
	Items []apiItem `json:"items"`
	Total float64   `json:"total"`
}

func (s *Server) daySnapshot(date string) (daySnapshot, error) {
	entries, total, err := s.store.ForDate(date)
	if err != nil {
		return daySnapshot{}, err
	}
	snap := daySnapshot{Date: date, Items: make([]apiItem, 0, len(entries)), Total: total}
	for _, e := range entries {
		snap.Items = append(snap.Items, apiItem{
			ID:        e.ID,
			Date:      e.EntryDate,
			ItemName:  e.ItemName,
			ItemType:  e.ItemType,
			Quantity:  e.Quantity,
			Unit:      e.Unit(),
			UnitPrice: e.UnitPrice,
			LineTotal: e.LineTotal(),
		})
	}
	return snap, nil
}

func (s *Server) handleAPIExpenses(w http.ResponseWriter, r *http.Request) {
	date, err := normalizeDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	snap, err := s.daySnapshot(date)
	if err != nil {
		s.serverError(w, "list expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAPITotal(w http.ResponseWriter, r *http.Request) {
	date, err := normalizeDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, total, err := s.store.ForDate(date)
	if err != nil {
		s.serverError(w, "total expenses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "total": total})
}

func (s *Server) handleDownloadMonth(w http.ResponseWriter, r *http.Request) {
	date, err := normalizeDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	start, end, label, err := monthBounds(date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, _, err := s.store.ForRange(start, end)
	if err != nil {
		s.serverError(w, "export month", err)
		return
	}

	filename := "expenses_" + strings.ReplaceAll(label, " ", "_") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "item_name", "item_type", "quantity", "unit_price", "line_total"})
	for _, e := range entries {
		_ = cw.Write([]string{
			e.EntryDate,
			e.ItemName,
			e.ItemType,
			strconv.FormatFloat(e.Quantity, 'f', -1, 64),
			strconv.FormatFloat(e.UnitPrice, 'f', -1, 64),
			strconv.FormatFloat(e.LineTotal(), 'f', -1, 64),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Error("write csv", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	date, err := normalizeDate(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.hub.add(conn)
	defer s.hub.remove(conn)

	if snap, err := s.daySnapshot(date); err == nil {
		if err := s.hub.writeTo(conn, snap); err != nil {
			return
		}
	}

	// Block until the peer goes away; pushes happen from notifyChanged.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// notifyChanged pushes a fresh snapshot of the affected day to every live
// socket. Clients showing another date ignore it.
func (s *Server) notifyChanged(date string) {
	snap, err := s.daySnapshot(date)
	if err != nil {
		s.logger.Error("snapshot for broadcast", "date", date, "error", err)
		return
	}
	s.hub.broadcast(snap)
}

func (s *Server) serverError(w http.ResponseWriter, what string, err error) {
	s.logger.Error(what, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
