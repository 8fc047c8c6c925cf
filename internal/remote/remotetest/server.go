// Package remotetest provides an in-memory storefront cart and search service
// for tests. Carts are keyed by a session cookie the server issues itself,
// the way the real service does.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// CookieName is the cart cookie issued by the fake service.
const CookieName = "cart"

// Product is a sellable variant.
type Product struct {
	ID        string
	Title     string
	Variant   string
	UnitPrice int64
	Image     string
	SoldOut   bool
}

type line struct {
	product  Product
	quantity int
}

type cart struct {
	lines []*line
}

// Server is the fake service. Its zero value is not usable; call NewServer.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	products map[string]Product
	carts    map[string]*cart
	failNext map[string]int
	calls    map[string]int
}

// NewServer starts a fake service selling products.
func NewServer(products ...Product) *Server {
	s := &Server{
		products: make(map[string]Product),
		carts:    make(map[string]*cart),
		failNext: make(map[string]int),
		calls:    make(map[string]int),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart.js", s.getCart)
	mux.HandleFunc("POST /cart/add.js", s.add)
	mux.HandleFunc("POST /cart/change.js", s.change)
	mux.HandleFunc("GET /search/suggest.json", s.suggest)
	mux.HandleFunc("HEAD /{$}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	s.Server = httptest.NewServer(mux)
	return s
}

// FailNext makes the next n calls to path answer 500.
func (s *Server) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[path] = n
}

// Calls returns how many requests path received.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Carts returns the number of distinct carts created.
func (s *Server) Carts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

// enter records the call and resolves the caller's cart, issuing a cookie for
// new visitors. It reports false when the call was told to fail.
func (s *Server) enter(w http.ResponseWriter, r *http.Request) (*cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[r.URL.Path]++
	if n := s.failNext[r.URL.Path]; n > 0 {
		s.failNext[r.URL.Path] = n - 1
		http.Error(w, `{"status":500,"message":"boom"}`, http.StatusInternalServerError)
		return nil, false
	}

	if c, err := r.Cookie(CookieName); err == nil {
		if existing, ok := s.carts[c.Value]; ok {
			return existing, true
		}
	}
	id := uuid.NewString()
	created := &cart{}
	s.carts[id] = created
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: id, Path: "/"})
	return created, true
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.enter(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	body := encode(c)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	c, ok := s.enter(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "description": err.Error()})
		return
	}

	qty := 1
	if raw := r.PostForm.Get("quantity"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 1 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"status": 422, "description": "invalid quantity"})
			return
		}
		qty = q
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[r.PostForm.Get("id")]
	if !ok || p.SoldOut {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"status": 422, "description": "sold out"})
		return
	}
	for _, l := range c.lines {
		if l.product.ID == p.ID {
			l.quantity += qty
			writeJSON(w, http.StatusOK, map[string]any{"id": p.ID, "quantity": l.quantity})
			return
		}
	}
	c.lines = append(c.lines, &line{product: p, quantity: qty})
	writeJSON(w, http.StatusOK, map[string]any{"id": p.ID, "quantity": qty})
}

func (s *Server) change(w http.ResponseWriter, r *http.Request) {
	c, ok := s.enter(w, r)
	if !ok {
		return
	}
	var req struct {
		ID       string `json:"id"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "description": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range c.lines {
		if LineKey(l.product) != req.ID {
			continue
		}
		if req.Quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		} else {
			l.quantity = req.Quantity
		}
		writeJSON(w, http.StatusOK, encode(c))
		return
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "description": "no such line"})
}

func (s *Server) suggest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	fail := s.failNext[r.URL.Path] > 0
	if fail {
		s.failNext[r.URL.Path]--
	}
	s.mu.Unlock()
	if fail {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}

	q := strings.ToLower(r.URL.Query().Get("q"))
	var hits []map[string]any

	s.mu.Lock()
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Title), q) {
			hits = append(hits, map[string]any{
				"title": p.Title,
				"url":   "/products/" + p.ID,
				"price": fmt.Sprintf("%d.%02d", p.UnitPrice/100, p.UnitPrice%100),
				"image": p.Image,
			})
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"resources": map[string]any{"results": map[string]any{"products": hits}},
	})
}

// LineKey returns the cart line key the fake service uses for p.
func LineKey(p Product) string {
	return p.ID + ":line"
}

func encode(c *cart) map[string]any {
	items := make([]map[string]any, 0, len(c.lines))
	count := 0
	var total int64
	for _, l := range c.lines {
		price := l.product.UnitPrice * int64(l.quantity)
		count += l.quantity
		total += price

		title := l.product.Title
		var variant any
		if l.product.Variant != "" {
			title += " - " + l.product.Variant
			variant = l.product.Variant
		}
		var image any
		if l.product.Image != "" {
			image = l.product.Image
		}
		items = append(items, map[string]any{
			"key":              LineKey(l.product),
			"title":            title,
			"product_title":    l.product.Title,
			"variant_title":    variant,
			"quantity":         l.quantity,
			"final_line_price": price,
			"image":            image,
			"url":              "/products/" + l.product.ID,
		})
	}
	return map[string]any{"item_count": count, "total_price": total, "items": items}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
