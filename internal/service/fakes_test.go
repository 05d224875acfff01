package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/external"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pricing"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// memDB is an in-memory stand-in for MySQL. A single mutex plays the role of
// the row locks taken by the real repositories, so guards observe the same
// serialised state.
type memDB struct {
	mu           sync.Mutex
	nextID       uint64
	cinemas      map[uint64]model.Cinema
	halls        map[uint64]model.Hall
	movies       map[uint64]model.Movie
	screenings   map[uint64]model.Screening
	reservations map[uint64]model.Reservation
	users        map[uint64]model.User
	refresh      map[uint64]refreshRow
}

type refreshRow struct {
	hash string
	exp  time.Time
}

func newMemDB() *memDB {
	return &memDB{
		cinemas:      map[uint64]model.Cinema{},
		halls:        map[uint64]model.Hall{},
		movies:       map[uint64]model.Movie{},
		screenings:   map[uint64]model.Screening{},
		reservations: map[uint64]model.Reservation{},
		users:        map[uint64]model.User{},
		refresh:      map[uint64]refreshRow{},
	}
}

func (db *memDB) id() uint64 {
	db.nextID++
	return db.nextID
}

func dup(key string) error { return fmt.Errorf("%w: %s", repository.ErrDuplicate, key) }

func pageOf[T any](m map[uint64]T, keep func(T) bool, p model.PageRequest) ([]T, int) {
	ids := make([]uint64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []T{}
	for i := p.Offset(); i < len(ids) && len(out) < p.Limit; i++ {
		out = append(out, m[ids[i]])
	}
	return out, len(ids)
}

func (db *memDB) reservationCount(screeningID uint64) int {
	n := 0
	for _, r := range db.reservations {
		if r.ScreeningID == screeningID {
			n++
		}
	}
	return n
}

// --- cinemas ---

type memCinemas struct{ *memDB }

func (s memCinemas) Create(_ context.Context, c *model.Cinema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.cinemas {
		if o.Address == c.Address && o.City == c.City {
			return dup("uq_cinemas_address_city")
		}
	}
	c.ID = s.id()
	s.cinemas[c.ID] = *c
	return nil
}

func (s memCinemas) GetByID(_ context.Context, id uint64) (model.Cinema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cinemas[id]
	if !ok {
		return c, repository.ErrNotFound
	}
	return c, nil
}

func (s memCinemas) List(_ context.Context, p model.PageRequest) ([]model.Cinema, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, total := pageOf(s.cinemas, nil, p)
	return out, total, nil
}

func (s memCinemas) Update(_ context.Context, c *model.Cinema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cinemas[c.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, o := range s.cinemas {
		if id != c.ID && o.Address == c.Address && o.City == c.City {
			return dup("uq_cinemas_address_city")
		}
	}
	s.cinemas[c.ID] = *c
	return nil
}

func (s memCinemas) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cinemas[id]; !ok {
		return repository.ErrNotFound
	}
	for _, h := range s.halls {
		if h.CinemaID == id {
			return repository.ErrInUse
		}
	}
	delete(s.cinemas, id)
	return nil
}

// --- halls ---

type memHalls struct{ *memDB }

func (s memHalls) Create(_ context.Context, h *model.Hall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cinemas[h.CinemaID]; !ok {
		return repository.ErrNotFound
	}
	for _, o := range s.halls {
		if o.CinemaID == h.CinemaID && o.Name == h.Name {
			return dup("uq_halls_name_cinema")
		}
	}
	h.ID = s.id()
	s.halls[h.ID] = *h
	return nil
}

func (s memHalls) GetByID(_ context.Context, id uint64) (model.Hall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.halls[id]
	if !ok {
		return h, repository.ErrNotFound
	}
	return h, nil
}

func (s memHalls) ListByCinema(_ context.Context, cinemaID uint64, p model.PageRequest) ([]model.Hall, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, total := pageOf(s.halls, func(h model.Hall) bool { return h.CinemaID == cinemaID }, p)
	return out, total, nil
}

func (s memHalls) Update(_ context.Context, h *model.Hall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.halls[h.ID]; !ok {
		return repository.ErrNotFound
	}
	for _, sc := range s.screenings {
		if sc.HallID == h.ID {
			return repository.ErrInUse
		}
	}
	s.halls[h.ID] = *h
	return nil
}

func (s memHalls) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.halls[id]; !ok {
		return repository.ErrNotFound
	}
	for _, sc := range s.screenings {
		if sc.HallID == id {
			return repository.ErrInUse
		}
	}
	delete(s.halls, id)
	return nil
}

// --- movies ---

type memMovies struct{ *memDB }

func (s memMovies) Create(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.movies {
		if o.Title == m.Title {
			return dup("uq_movies_title")
		}
	}
	m.ID = s.id()
	s.movies[m.ID] = *m
	return nil
}

func (s memMovies) GetByID(_ context.Context, id uint64) (model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	if !ok {
		return m, repository.ErrNotFound
	}
	return m, nil
}

func (s memMovies) List(_ context.Context, p model.PageRequest) ([]model.Movie, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, total := pageOf(s.movies, nil, p)
	return out, total, nil
}

func (s memMovies) Update(_ context.Context, m *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[m.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, o := range s.movies {
		if id != m.ID && o.Title == m.Title {
			return dup("uq_movies_title")
		}
	}
	s.movies[m.ID] = *m
	return nil
}

func (s memMovies) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return repository.ErrNotFound
	}
	for _, sc := range s.screenings {
		if sc.MovieID == id {
			return repository.ErrInUse
		}
	}
	delete(s.movies, id)
	return nil
}

// --- screenings ---

type memScreenings struct{ *memDB }

func (s memScreenings) GetByID(_ context.Context, id uint64) (model.Screening, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.screenings[id]
	if !ok {
		return sc, repository.ErrNotFound
	}
	return sc, nil
}

func (s memScreenings) ListByMovie(_ context.Context, movieID uint64, f repository.ScreeningFilter, p model.PageRequest) ([]model.Screening, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, total := pageOf(s.screenings, func(sc model.Screening) bool {
		if sc.MovieID != movieID {
			return false
		}
		if f.From != "" && sc.Date < f.From {
			return false
		}
		return f.To == "" || sc.Date <= f.To
	}, p)
	return out, total, nil
}

func (s memScreenings) ListByHall(_ context.Context, hallID uint64, p model.PageRequest) ([]model.Screening, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, total := pageOf(s.screenings, func(sc model.Screening) bool { return sc.HallID == hallID }, p)
	return out, total, nil
}

func (s memScreenings) sameDay(hallID uint64, date string, exclude uint64) []model.Screening {
	var out []model.Screening
	for id, sc := range s.screenings {
		if id != exclude && sc.HallID == hallID && sc.Date == date {
			out = append(out, sc)
		}
	}
	return out
}

func (s memScreenings) Create(_ context.Context, sc *model.Screening, guard repository.ScheduleGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hall, ok := s.halls[sc.HallID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := guard(repository.ScheduleState{Hall: hall, SameDay: s.sameDay(sc.HallID, sc.Date, 0)}); err != nil {
		return err
	}
	sc.ID = s.id()
	s.screenings[sc.ID] = *sc
	return nil
}

func (s memScreenings) Update(_ context.Context, sc *model.Screening, guard repository.ScheduleGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.screenings[sc.ID]
	if !ok {
		return repository.ErrNotFound
	}
	hall, ok := s.halls[sc.HallID]
	if !ok {
		return repository.ErrNotFound
	}
	st := repository.ScheduleState{
		Current:      &cur,
		Reservations: s.reservationCount(sc.ID),
		Hall:         hall,
		SameDay:      s.sameDay(sc.HallID, sc.Date, sc.ID),
	}
	if err := guard(st); err != nil {
		return err
	}
	s.screenings[sc.ID] = *sc
	return nil
}

func (s memScreenings) SetPrices(_ context.Context, id uint64, fn func(model.Screening, int) (pricing.Prices, error)) (model.Screening, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.screenings[id]
	if !ok {
		return cur, repository.ErrNotFound
	}
	p, err := fn(cur, s.reservationCount(id))
	if err != nil {
		return model.Screening{}, err
	}
	cur.Prices = p
	s.screenings[id] = cur
	return cur, nil
}

func (s memScreenings) Delete(_ context.Context, id uint64, guard repository.LockedGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.screenings[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := guard(cur, s.reservationCount(id)); err != nil {
		return err
	}
	delete(s.screenings, id)
	return nil
}

func (s memScreenings) ListRefreshable(_ context.Context, after string) ([]model.Screening, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, _ := pageOf(s.screenings, func(sc model.Screening) bool {
		return sc.Date > after && s.reservationCount(sc.ID) == 0
	}, model.PageRequest{Page: 1, Limit: 1 << 20})
	return out, nil
}

func (s memScreenings) RefreshPrices(_ context.Context, id uint64, p pricing.Prices) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.screenings[id]
	if !ok || s.reservationCount(id) > 0 {
		return false, nil
	}
	cur.BaseUSD, cur.BaseCHF = p.BaseUSD, p.BaseCHF
	cur.EUR, cur.USD, cur.CHF = p.EUR, p.USD, p.CHF
	s.screenings[id] = cur
	return true, nil
}

// --- reservations ---

type memReservations struct{ *memDB }

func (s memReservations) Create(_ context.Context, res *model.Reservation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[res.UserID]; !ok {
		return 0, repository.ErrNotFound
	}
	sc, ok := s.screenings[res.ScreeningID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	for _, r := range s.reservations {
		if r.UserID == res.UserID && r.ScreeningID == res.ScreeningID {
			return 0, dup(repository.KeyUserScreening)
		}
		if res.OrderID != "" && r.OrderID == res.OrderID {
			return 0, dup("uq_reservations_order")
		}
	}
	if sc.NumberOfAvailableSeats <= 0 {
		return 0, repository.ErrNoSeats
	}
	sc.NumberOfAvailableSeats--
	s.screenings[sc.ID] = sc
	res.ID = s.id()
	res.CreatedAt = time.Now().UTC()
	s.reservations[res.ID] = *res
	return sc.NumberOfAvailableSeats, nil
}

// release mirrors the capped increment of the seat ledger.
func (db *memDB) release(screeningID uint64) repository.SeatCount {
	sc, ok := db.screenings[screeningID]
	if !ok {
		return repository.SeatCount{Clamped: true}
	}
	if sc.NumberOfAvailableSeats >= db.halls[sc.HallID].NumberOfSeats {
		return repository.SeatCount{Left: sc.NumberOfAvailableSeats, Clamped: true}
	}
	sc.NumberOfAvailableSeats++
	db.screenings[screeningID] = sc
	return repository.SeatCount{Left: sc.NumberOfAvailableSeats}
}

func (s memReservations) Delete(_ context.Context, id uint64, guard repository.CancelGuard) (model.Reservation, repository.SeatCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.reservations[id]
	if !ok {
		return res, repository.SeatCount{}, repository.ErrNotFound
	}
	if err := guard(res, s.screenings[res.ScreeningID]); err != nil {
		return res, repository.SeatCount{}, err
	}
	delete(s.reservations, id)
	return res, s.release(res.ScreeningID), nil
}

func (s memReservations) GetByID(_ context.Context, id uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return r, repository.ErrNotFound
	}
	return r, nil
}

func (s memReservations) Exists(_ context.Context, userID, screeningID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.UserID == userID && r.ScreeningID == screeningID {
			return true, nil
		}
	}
	return false, nil
}

func (s memReservations) CountByScreening(_ context.Context, screeningID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservationCount(screeningID), nil
}

func (s memReservations) ListByUser(_ context.Context, userID uint64, p model.PageRequest) ([]model.ReservationView, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, total := pageOf(s.reservations, func(r model.Reservation) bool { return r.UserID == userID }, p)
	out := make([]model.ReservationView, 0, len(rows))
	for _, r := range rows {
		sc := s.screenings[r.ScreeningID]
		out = append(out, model.ReservationView{
			Reservation: r, Date: sc.Date, Time: sc.Time, HallID: sc.HallID,
			MovieID: sc.MovieID, MovieTitle: s.movies[sc.MovieID].Title,
		})
	}
	return out, total, nil
}

// --- users ---

type memUsers struct{ *memDB }

func (s memUsers) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, o := range s.users {
		if o.Username == u.Username {
			return dup(repository.KeyUsername)
		}
		if o.Email == u.Email {
			return dup(repository.KeyEmail)
		}
	}
	u.ID = s.id()
	s.users[u.ID] = *u
	return nil
}

func (s memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return u, repository.ErrNotFound
	}
	return u, nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s memUsers) List(_ context.Context, p model.PageRequest) ([]model.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, total := pageOf(s.users, nil, p)
	return out, total, nil
}

func (s memUsers) UpdateProfile(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for id, o := range s.users {
		if id == u.ID {
			continue
		}
		if o.Username == u.Username {
			return dup(repository.KeyUsername)
		}
		if o.Email == u.Email {
			return dup(repository.KeyEmail)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s memUsers) UpdateRole(_ context.Context, id uint64, role string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return u, repository.ErrNotFound
	}
	u.Role = role
	s.users[id] = u
	return u, nil
}

func (s memUsers) Delete(_ context.Context, id uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return nil, repository.ErrNotFound
	}
	var released []uint64
	for rid, r := range s.reservations {
		if r.UserID == id {
			delete(s.reservations, rid)
			s.release(r.ScreeningID)
			released = append(released, r.ScreeningID)
		}
	}
	delete(s.users, id)
	delete(s.refresh, id)
	return released, nil
}

// --- tokens ---

type memTokens struct{ *memDB }

func (s memTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	s.refresh[userID] = refreshRow{hash: hash, exp: exp}
	return nil
}

func (s memTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.refresh {
		if r.hash == hash && time.Now().Before(r.exp) {
			return id, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (s memTokens) Revoke(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, userID)
	return nil
}

// --- collaborators ---

type fakeRates struct {
	mu    sync.Mutex
	rates pricing.Rates
	err   error
	calls int
}

func (f *fakeRates) Latest(context.Context) (pricing.Rates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

type fakePayments struct {
	status  string
	orders  []external.Order
	capture []string
}

func (f *fakePayments) CreateOrder(_ context.Context, o external.Order) (external.OrderRef, error) {
	f.orders = append(f.orders, o)
	id := fmt.Sprintf("ORDER-%d", len(f.orders))
	return external.OrderRef{ID: id, Status: "CREATED", ApproveURL: "https://pay.example/approve/" + id}, nil
}

func (f *fakePayments) GetOrder(_ context.Context, orderID string) (external.OrderDetails, error) {
	var n int
	if _, err := fmt.Sscanf(orderID, "ORDER-%d", &n); err != nil || n < 1 || n > len(f.orders) {
		return external.OrderDetails{}, apperr.Validation(apperr.ReasonInvalidInput, "unknown payment order")
	}
	o := f.orders[n-1]
	return external.OrderDetails{
		ID: orderID, Status: "APPROVED", Reference: o.Reference, Currency: o.Currency, Amount: o.Amount,
	}, nil
}

func (f *fakePayments) Capture(_ context.Context, orderID string) (string, error) {
	f.capture = append(f.capture, orderID)
	return f.status, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type memImages struct {
	mu    sync.Mutex
	n     int
	files map[string]string
}

func newMemImages() *memImages { return &memImages{files: map[string]string{}} }

func (m *memImages) Save(original string, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.n++
	name := fmt.Sprintf("img-%d-%s", m.n, original)
	m.files[name] = string(b)
	return name, nil
}

func (m *memImages) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	return nil
}

func (m *memImages) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[name]
	return ok
}
