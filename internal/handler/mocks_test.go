package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motoclube/roleplanner/internal/datasync"
	"github.com/motoclube/roleplanner/internal/domain"
	"github.com/motoclube/roleplanner/internal/handler"
	"github.com/motoclube/roleplanner/internal/service"
)

// Each mock is a test double for one handler interface.
// Set only the method fields your test needs.

type mockCatalog struct {
	catalog func(category domain.Category) []domain.Destination
	search  func(criteria domain.SearchCriteria) ([]domain.MatchResult, error)
}

func (m *mockCatalog) Catalog(c domain.Category) []domain.Destination { return m.catalog(c) }
func (m *mockCatalog) Search(sc domain.SearchCriteria) ([]domain.MatchResult, error) {
	return m.search(sc)
}

type mockGenerator struct {
	generate func(ctx context.Context, userID string, criteria domain.SearchCriteria) (service.Generation, error)
}

func (m *mockGenerator) Generate(ctx context.Context, userID string, sc domain.SearchCriteria) (service.Generation, error) {
	return m.generate(ctx, userID, sc)
}

type mockUsers struct {
	register       func(ctx context.Context, u domain.User) (domain.User, error)
	get            func(ctx context.Context, id string) (domain.User, error)
	update         func(ctx context.Context, id string, partial map[string]any) (domain.User, error)
	login          func(ctx context.Context, id string) (domain.User, error)
	delete         func(ctx context.Context, id string) error
	settings       func(ctx context.Context, userID string) (domain.Settings, error)
	saveSettings   func(ctx context.Context, userID string, st domain.Settings) (domain.Settings, error)
	favorites      func(ctx context.Context, userID string) ([]domain.Favorite, error)
	addFavorite    func(ctx context.Context, userID, destinationName string) (domain.Favorite, error)
	removeFavorite func(ctx context.Context, userID, favoriteID string) error
}

func (m *mockUsers) Register(ctx context.Context, u domain.User) (domain.User, error) {
	return m.register(ctx, u)
}
func (m *mockUsers) Get(ctx context.Context, id string) (domain.User, error) { return m.get(ctx, id) }
func (m *mockUsers) Update(ctx context.Context, id string, p map[string]any) (domain.User, error) {
	return m.update(ctx, id, p)
}
func (m *mockUsers) Login(ctx context.Context, id string) (domain.User, error) {
	return m.login(ctx, id)
}
func (m *mockUsers) Delete(ctx context.Context, id string) error { return m.delete(ctx, id) }
func (m *mockUsers) Settings(ctx context.Context, userID string) (domain.Settings, error) {
	return m.settings(ctx, userID)
}
func (m *mockUsers) SaveSettings(ctx context.Context, userID string, st domain.Settings) (domain.Settings, error) {
	return m.saveSettings(ctx, userID, st)
}
func (m *mockUsers) Favorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	return m.favorites(ctx, userID)
}
func (m *mockUsers) AddFavorite(ctx context.Context, userID, name string) (domain.Favorite, error) {
	return m.addFavorite(ctx, userID, name)
}
func (m *mockUsers) RemoveFavorite(ctx context.Context, userID, favoriteID string) error {
	return m.removeFavorite(ctx, userID, favoriteID)
}

type mockRoteiros struct {
	save   func(ctx context.Context, r domain.Roteiro) (domain.Roteiro, error)
	get    func(ctx context.Context, id string) (domain.Roteiro, error)
	list   func(ctx context.Context, p service.ListParams) ([]domain.Roteiro, error)
	update func(ctx context.Context, id string, partial map[string]any) (domain.Roteiro, error)
	rate   func(ctx context.Context, id string, rating float64) (domain.Roteiro, error)
	delete func(ctx context.Context, id string) error
	tags   func(ctx context.Context, userID, prefix string) ([]domain.TagCount, error)
}

func (m *mockRoteiros) Save(ctx context.Context, r domain.Roteiro) (domain.Roteiro, error) {
	return m.save(ctx, r)
}
func (m *mockRoteiros) Get(ctx context.Context, id string) (domain.Roteiro, error) {
	return m.get(ctx, id)
}
func (m *mockRoteiros) List(ctx context.Context, p service.ListParams) ([]domain.Roteiro, error) {
	return m.list(ctx, p)
}
func (m *mockRoteiros) Update(ctx context.Context, id string, p map[string]any) (domain.Roteiro, error) {
	return m.update(ctx, id, p)
}
func (m *mockRoteiros) Rate(ctx context.Context, id string, rating float64) (domain.Roteiro, error) {
	return m.rate(ctx, id, rating)
}
func (m *mockRoteiros) Delete(ctx context.Context, id string) error { return m.delete(ctx, id) }
func (m *mockRoteiros) Tags(ctx context.Context, userID, prefix string) ([]domain.TagCount, error) {
	return m.tags(ctx, userID, prefix)
}

type mockAnalytics struct {
	track   func(ctx context.Context, userID, eventType string, props map[string]any) (domain.AnalyticsEvent, error)
	summary func(ctx context.Context, period domain.Period) (domain.AnalyticsSummary, error)
	export  func(ctx context.Context, period domain.Period) (domain.AnalyticsExport, error)
}

func (m *mockAnalytics) Track(ctx context.Context, userID, eventType string, props map[string]any) (domain.AnalyticsEvent, error) {
	return m.track(ctx, userID, eventType, props)
}
func (m *mockAnalytics) Summary(ctx context.Context, p domain.Period) (domain.AnalyticsSummary, error) {
	return m.summary(ctx, p)
}
func (m *mockAnalytics) Export(ctx context.Context, p domain.Period) (domain.AnalyticsExport, error) {
	return m.export(ctx, p)
}

type mockExport struct {
	rows     func(ctx context.Context, userID string) ([]domain.ExportRow, error)
	userData func(ctx context.Context, userID string) (domain.UserDataExport, error)
	imp      func(ctx context.Context, bundle domain.UserDataExport) (datasync.ImportReport, error)
}

func (m *mockExport) Rows(ctx context.Context, userID string) ([]domain.ExportRow, error) {
	return m.rows(ctx, userID)
}
func (m *mockExport) UserData(ctx context.Context, userID string) (domain.UserDataExport, error) {
	return m.userData(ctx, userID)
}
func (m *mockExport) Import(ctx context.Context, b domain.UserDataExport) (datasync.ImportReport, error) {
	return m.imp(ctx, b)
}

type mockSync struct {
	status  datasync.Status
	flush   func(ctx context.Context) (int, error)
	online  []bool
	resumed int
}

func (m *mockSync) Status() datasync.Status                { return m.status }
func (m *mockSync) Flush(ctx context.Context) (int, error) { return m.flush(ctx) }
func (m *mockSync) SetOnline(online bool) {
	m.online = append(m.online, online)
	m.status.Online = online
}
func (m *mockSync) Resume() { m.resumed++ }

// compile-time checks: every mock must satisfy its handler interface.
var (
	_ handler.Catalog           = (*mockCatalog)(nil)
	_ handler.Generator         = (*mockGenerator)(nil)
	_ handler.UserServicer      = (*mockUsers)(nil)
	_ handler.RoteiroServicer   = (*mockRoteiros)(nil)
	_ handler.AnalyticsServicer = (*mockAnalytics)(nil)
	_ handler.Exporter          = (*mockExport)(nil)
	_ handler.Syncer            = (*mockSync)(nil)
)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks into its chi router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(d handler.Deps) http.Handler {
	return handler.NewServer(d).Routes()
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// serve runs one request through h and returns the recorder.
func serve(h http.Handler, method, target string, body *bytes.Buffer) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// serveReader is serve for raw, possibly malformed, bodies.
func serveReader(h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// errorCode decodes the error envelope and returns its code.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error.Code
}

func roteiroFixture() domain.Roteiro {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return domain.Roteiro{
		ID:     "rot-1",
		UserID: "user-1",
		Title:  "Rolê para Estrada Real",
		Stops: []domain.Stop{
			{Name: "Saída rumo a Estrada Real", DistanceKm: 140, DurationHours: 8},
			{Name: "Retorno", DistanceKm: 140, DurationHours: 8},
		},
		TotalDistanceKm: 280,
		TotalHours:      16,
		Difficulty:      domain.DifficultyHard,
		Tags:            []string{"aventura", "terra"},
		CreatedAt:       now,
		UpdatedAt:       now,
		SyncStatus:      domain.SyncPending,
	}
}
