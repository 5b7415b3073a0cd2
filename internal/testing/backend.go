package testing

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/gorilla/websocket"
)

const apiPrefix = "/api/v1"

type account struct {
	password string
	profile  models.UserProfile
}

type failure struct {
	status int
	detail any
}

// FakeBackend is an in-memory implementation of the media backend served by [httptest.Server].
//
// REST routes live under /api/v1 and the push channel at /notifications/ws, mirroring the real deployment.
type FakeBackend struct {
	Server *httptest.Server

	// OnRequest, when set, runs before every REST request is handled. Tests use it to hold or count requests.
	OnRequest func(r *http.Request)

	mu       sync.Mutex
	seq      int
	accounts map[string]*account
	access   map[string]string // access token -> username
	refresh  map[string]string // refresh token -> username
	history  map[string]map[string]time.Time
	files    map[string][]models.FileRecord
	images   []models.ImageItem
	audio    []models.AudioItem
	failures map[string][]failure
	calls    map[string]int
	now      func() time.Time

	upgrader websocket.Upgrader
	sockets  map[*websocket.Conn]string
	dials    int
}

// NewFakeBackend starts a backend and closes it when the test ends.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		accounts: map[string]*account{},
		access:   map[string]string{},
		refresh:  map[string]string{},
		history:  map[string]map[string]time.Time{},
		files:    map[string][]models.FileRecord{},
		failures: map[string][]failure{},
		calls:    map[string]int{},
		sockets:  map[*websocket.Conn]string{},
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+apiPrefix+"/users/login", b.login)
	mux.HandleFunc("POST "+apiPrefix+"/users/refresh", b.refreshToken)
	mux.HandleFunc("POST "+apiPrefix+"/users/register", b.register)
	mux.HandleFunc("DELETE "+apiPrefix+"/users/logout", b.authed(b.logout))
	mux.HandleFunc("GET "+apiPrefix+"/users/info", b.authed(b.info))
	mux.HandleFunc("PATCH "+apiPrefix+"/users/update", b.authed(b.update))
	mux.HandleFunc("POST "+apiPrefix+"/users/verify-email", b.authed(b.sendVerification))
	mux.HandleFunc("GET "+apiPrefix+"/users/verify-email", b.confirmEmail)
	mux.HandleFunc("POST "+apiPrefix+"/users/reset-password", b.sendReset)
	mux.HandleFunc("PATCH "+apiPrefix+"/users/reset-password", b.resetPassword)
	mux.HandleFunc("GET "+apiPrefix+"/media/search", b.authed(b.search))
	mux.HandleFunc("GET "+apiPrefix+"/media/detail", b.authed(b.detail))
	mux.HandleFunc("GET "+apiPrefix+"/media/history", b.authed(b.getHistory))
	mux.HandleFunc("DELETE "+apiPrefix+"/media/history", b.authed(b.deleteHistory))
	mux.HandleFunc("GET "+apiPrefix+"/files/", b.authed(b.listFiles))
	mux.HandleFunc("POST "+apiPrefix+"/files/upload", b.authed(b.upload))
	mux.HandleFunc("DELETE "+apiPrefix+"/files/{id}", b.authed(b.deleteFile))
	mux.HandleFunc("GET /notifications/ws", b.notifications)

	b.Server = httptest.NewServer(b.intercept(mux))
	t.Cleanup(b.Close)
	return b
}

// URL returns the REST base URL.
func (b *FakeBackend) URL() string { return b.Server.URL + apiPrefix }

// Close drops push connections and stops the server.
func (b *FakeBackend) Close() {
	b.DropSockets()
	b.Server.Close()
}

// SetClock replaces the time source used for timestamps.
func (b *FakeBackend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// AddUser creates an account.
func (b *FakeBackend) AddUser(profile models.UserProfile, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if profile.EmailVerificationStatus == "" {
		profile.EmailVerificationStatus = models.VerificationNone
	}
	b.accounts[profile.Username] = &account{password: password, profile: profile}
}

// Profile returns the stored profile for username.
func (b *FakeBackend) Profile(username string) (models.UserProfile, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[username]
	if !ok {
		return models.UserProfile{}, false
	}
	return acc.profile, true
}

// IssueToken creates an access token for username without a login request.
func (b *FakeBackend) IssueToken(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueAccess(username)
}

// IssueRefreshToken creates a refresh token for username without a login request.
func (b *FakeBackend) IssueRefreshToken(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	token := fmt.Sprintf("refresh-%d", b.seq)
	b.refresh[token] = username
	return token
}

// Revoke invalidates every access token, so the next signed request is rejected with 401.
func (b *FakeBackend) Revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = map[string]string{}
}

// AddImages seeds image search results.
func (b *FakeBackend) AddImages(items ...models.ImageItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.images = append(b.images, items...)
}

// AddAudio seeds audio search results.
func (b *FakeBackend) AddAudio(items ...models.AudioItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = append(b.audio, items...)
}

// AddFile seeds a file for username.
func (b *FakeBackend) AddFile(username string, f models.FileRecord) models.FileRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	if f.ID == 0 {
		f.ID = int64(b.seq)
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = b.now().Add(time.Duration(b.seq) * time.Millisecond)
	}
	if f.Status == "" {
		f.Status = models.StatusPending
	}
	b.files[username] = append(b.files[username], f)
	return f
}

// SetHistory seeds search history for username.
func (b *FakeBackend) SetHistory(username string, entries ...models.HistoryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := map[string]time.Time{}
	for _, e := range entries {
		h[e.Keyword] = e.SearchedAt
	}
	b.history[username] = h
}

// History returns the stored history keywords for username, newest first.
func (b *FakeBackend) History(username string) []models.HistoryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.historyOf(username)
}

// Fail makes the next request to method and path (relative to /api/v1) answer with status and detail.
// Repeated calls queue up failures.
func (b *FakeBackend) Fail(method, path string, status int, detail any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := method + " " + path
	b.failures[key] = append(b.failures[key], failure{status: status, detail: detail})
}

// Calls returns how many requests reached method and path (relative to /api/v1).
func (b *FakeBackend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+path]
}

// TotalCalls returns how many REST requests were received.
func (b *FakeBackend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// Dials returns how many push connections were accepted.
func (b *FakeBackend) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// OpenSockets returns how many push connections are currently open.
func (b *FakeBackend) OpenSockets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sockets)
}

// Push sends n to every open push connection.
func (b *FakeBackend) Push(n models.Notification) {
	data, _ := json.Marshal(n)

	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.sockets))
	for c := range b.sockets {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		c.WriteMessage(websocket.TextMessage, data)
	}
}

// DropSockets closes every push connection from the server side.
func (b *FakeBackend) DropSockets() {
	b.mu.Lock()
	conns := b.sockets
	b.sockets = map[*websocket.Conn]string{}
	b.mu.Unlock()

	for c := range conns {
		c.Close()
	}
}

func (b *FakeBackend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, apiPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		if hook := b.OnRequest; hook != nil {
			hook(r)
		}

		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, apiPrefix)

		b.mu.Lock()
		b.calls[key]++
		var fail *failure
		if queued := b.failures[key]; len(queued) > 0 {
			fail = &queued[0]
			b.failures[key] = queued[1:]
		}
		b.mu.Unlock()

		if fail != nil {
			writeJSON(w, fail.status, map[string]any{"detail": fail.detail})
			return
		}

		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, username string)

func (b *FakeBackend) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		b.mu.Lock()
		username, ok := b.access[token]
		b.mu.Unlock()

		if token == "" || !ok {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		h(w, r, username)
	}
}

// issueAccess creates an access token. Caller holds mu.
func (b *FakeBackend) issueAccess(username string) string {
	b.seq++
	token := fmt.Sprintf("access-%d", b.seq)
	b.access[token] = username
	return token
}

func (b *FakeBackend) login(w http.ResponseWriter, r *http.Request) {
	username, password := r.FormValue("username"), r.FormValue("password")

	b.mu.Lock()
	acc, ok := b.accounts[username]
	if !ok || acc.password != password {
		b.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	access := b.issueAccess(username)
	b.seq++
	refresh := fmt.Sprintf("refresh-%d", b.seq)
	b.refresh[refresh] = username
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: refresh, HttpOnly: true, Path: "/"})
	writeJSON(w, http.StatusOK, map[string]string{"access_token": access, "token_type": "bearer"})
}

func (b *FakeBackend) refreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("refresh_token")
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Missing refresh token")
		return
	}

	b.mu.Lock()
	username, ok := b.refresh[cookie.Value]
	if !ok {
		b.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	access := b.issueAccess(username)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"access_token": access, "token_type": "bearer"})
}

func (b *FakeBackend) register(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	if r.FormValue("password") != r.FormValue("password_repeat") {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{
			{"loc": []string{"body"}, "msg": "Value error, Passwords do not match", "type": "value_error"},
		}})
		return
	}

	b.mu.Lock()
	if _, exists := b.accounts[username]; exists {
		b.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	profile := models.UserProfile{
		Username:                username,
		Email:                   r.FormValue("email"),
		FullName:                r.FormValue("full_name"),
		EmailVerificationStatus: models.VerificationNone,
	}
	b.accounts[username] = &account{password: r.FormValue("password"), profile: profile}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, profile)
}

func (b *FakeBackend) logout(w http.ResponseWriter, r *http.Request, username string) {
	if cookie, err := r.Cookie("refresh_token"); err == nil {
		b.mu.Lock()
		delete(b.refresh, cookie.Value)
		b.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "", MaxAge: -1, Path: "/"})
	writeDetail(w, http.StatusOK, "Logged out")
}

func (b *FakeBackend) info(w http.ResponseWriter, r *http.Request, username string) {
	profile, _ := b.Profile(username)
	writeJSON(w, http.StatusOK, profile)
}

func (b *FakeBackend) update(w http.ResponseWriter, r *http.Request, username string) {
	if r.FormValue("password") != r.FormValue("password_repeat") {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{
			{"loc": []string{"body"}, "msg": "Value error, Passwords do not match", "type": "value_error"},
		}})
		return
	}

	b.mu.Lock()
	acc := b.accounts[username]
	if v := r.FormValue("full_name"); v != "" {
		acc.profile.FullName = v
	}
	if v := r.FormValue("email"); v != "" && v != acc.profile.Email {
		acc.profile.Email = v
		acc.profile.EmailVerificationStatus = models.VerificationNone
	}
	if v := r.FormValue("password"); v != "" {
		acc.password = v
	}
	profile := acc.profile
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, profile)
}

func (b *FakeBackend) sendVerification(w http.ResponseWriter, r *http.Request, username string) {
	b.mu.Lock()
	acc := b.accounts[username]
	if acc.profile.Email == "" {
		b.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email is not set")
		return
	}
	acc.profile.EmailVerificationStatus = models.VerificationVerifying
	profile := acc.profile
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, profile)
}

// VerificationToken returns the token a verification email for username would carry.
func VerificationToken(username string) string { return "verify-" + username }

// ResetToken returns the token a reset email for username would carry.
func ResetToken(username string) string { return "reset-" + username }

func (b *FakeBackend) confirmEmail(w http.ResponseWriter, r *http.Request) {
	username, ok := strings.CutPrefix(r.URL.Query().Get("token"), "verify-")

	b.mu.Lock()
	acc, exists := b.accounts[username]
	if !ok || !exists || acc.profile.EmailVerificationStatus != models.VerificationVerifying {
		b.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Invalid token")
		return
	}
	acc.profile.EmailVerificationStatus = models.VerificationVerified
	profile := acc.profile
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, profile)
}

func (b *FakeBackend) sendReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{
			{"loc": []string{"body", "email"}, "msg": "value is not a valid email address", "type": "value_error"},
		}})
		return
	}
	writeDetail(w, http.StatusOK, "If your email is found and verified, an reset password email will be sent")
}

func (b *FakeBackend) resetPassword(w http.ResponseWriter, r *http.Request) {
	username, ok := strings.CutPrefix(r.URL.Query().Get("token"), "reset-")

	b.mu.Lock()
	acc, exists := b.accounts[username]
	if !ok || !exists {
		b.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Invalid token")
		return
	}
	acc.password = r.FormValue("password")
	profile := acc.profile
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, profile)
}

func (b *FakeBackend) search(w http.ResponseWriter, r *http.Request, username string) {
	query := r.URL.Query()
	q := query.Get("q")
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	b.mu.Lock()
	if q != "" {
		if b.history[username] == nil {
			b.history[username] = map[string]time.Time{}
		}
		b.history[username][q] = b.now()
	}
	images := filterTitles(b.images, q, func(i models.ImageItem) string { return i.Title })
	audio := filterTitles(b.audio, q, func(a models.AudioItem) string { return a.Title })
	b.mu.Unlock()

	switch query.Get("type") {
	case "image":
		writeJSON(w, http.StatusOK, paginate(images, page, pageSize))
	case "audio":
		writeJSON(w, http.StatusOK, paginate(audio, page, pageSize))
	default:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": []map[string]any{
			{"loc": []string{"query", "type"}, "msg": "Input should be 'image' or 'audio'", "type": "enum"},
		}})
	}
}

func (b *FakeBackend) detail(w http.ResponseWriter, r *http.Request, username string) {
	id := r.URL.Query().Get("id")

	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.URL.Query().Get("type") {
	case "image":
		for _, item := range b.images {
			if item.ID == id {
				writeJSON(w, http.StatusOK, item)
				return
			}
		}
	case "audio":
		for _, item := range b.audio {
			if item.ID == id {
				writeJSON(w, http.StatusOK, item)
				return
			}
		}
	}
	writeDetail(w, http.StatusNotFound, "Media not found")
}

// historyOf returns username's history newest first. Caller holds mu.
func (b *FakeBackend) historyOf(username string) []models.HistoryEntry {
	entries := []models.HistoryEntry{}
	for k, at := range b.history[username] {
		entries = append(entries, models.HistoryEntry{Keyword: k, SearchedAt: at})
	}
	models.SortHistory(entries)
	return entries
}

func (b *FakeBackend) getHistory(w http.ResponseWriter, r *http.Request, username string) {
	b.mu.Lock()
	entries := b.historyOf(username)
	b.mu.Unlock()
	writeHistory(w, entries)
}

func (b *FakeBackend) deleteHistory(w http.ResponseWriter, r *http.Request, username string) {
	b.mu.Lock()
	if keyword := r.URL.Query().Get("keyword"); keyword != "" {
		delete(b.history[username], keyword)
	} else {
		delete(b.history, username)
	}
	entries := b.historyOf(username)
	b.mu.Unlock()
	writeHistory(w, entries)
}

func writeHistory(w http.ResponseWriter, entries []models.HistoryEntry) {
	type wireEntry struct {
		Keyword   string    `json:"keyword"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	out := make([]wireEntry, len(entries))
	for i, e := range entries {
		out[i] = wireEntry{Keyword: e.Keyword, UpdatedAt: e.SearchedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *FakeBackend) listFiles(w http.ResponseWriter, r *http.Request, username string) {
	q := models.ParseListFilesQuery(r.URL.Query())

	b.mu.Lock()
	files := append([]models.FileRecord{}, b.files[username]...)
	b.mu.Unlock()

	sort.SliceStable(files, func(i, j int) bool {
		var less bool
		switch q.SortBy {
		case models.SortName:
			less = files[i].Filename < files[j].Filename
		case models.SortStatus:
			less = files[i].Status < files[j].Status
		default:
			less = files[i].CreatedAt.Before(files[j].CreatedAt)
		}
		if q.Order == models.OrderDesc {
			return !less && !sameKey(files[i], files[j], q.SortBy)
		}
		return less
	})

	writeJSON(w, http.StatusOK, paginate(files, q.Page, q.PageSize))
}

func sameKey(a, b models.FileRecord, field models.SortField) bool {
	switch field {
	case models.SortName:
		return a.Filename == b.Filename
	case models.SortStatus:
		return a.Status == b.Status
	default:
		return a.CreatedAt.Equal(b.CreatedAt)
	}
}

func (b *FakeBackend) upload(w http.ResponseWriter, r *http.Request, username string) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Unable to read filename")
		return
	}
	defer file.Close()

	data, _ := io.ReadAll(file)
	if len(data) == 0 {
		writeDetail(w, http.StatusBadRequest, "File is empty")
		return
	}
	if len(data) > 5242880 {
		writeDetail(w, http.StatusRequestEntityTooLarge, "File too large (Max 5MB)")
		return
	}

	record := b.AddFile(username, models.FileRecord{
		Filename: header.Filename,
		Size:     int64(len(data)),
		Type:     header.Header.Get("Content-Type"),
		URL:      b.Server.URL + "/files/" + header.Filename,
		Status:   models.StatusPending,
	})

	writeJSON(w, http.StatusOK, record)
}

func (b *FakeBackend) deleteFile(w http.ResponseWriter, r *http.Request, username string) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid file id")
		return
	}

	b.mu.Lock()
	files := b.files[username]
	for i, f := range files {
		if f.ID == id {
			b.files[username] = append(files[:i:i], files[i+1:]...)
			b.mu.Unlock()
			writeDetail(w, http.StatusOK, "Deleted successfully")
			return
		}
	}
	b.mu.Unlock()

	writeDetail(w, http.StatusNotFound, "File not found")
}

func (b *FakeBackend) notifications(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	username, ok := b.access[r.URL.Query().Get("token")]
	b.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	b.mu.Lock()
	b.sockets[conn] = username
	b.dials++
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.sockets, conn)
			b.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func filterTitles[T any](items []T, q string, title func(T) string) []T {
	out := []T{}
	for _, item := range items {
		if q == "" || strings.Contains(strings.ToLower(title(item)), strings.ToLower(q)) {
			out = append(out, item)
		}
	}
	return out
}

func paginate[T any](items []T, page, pageSize int) models.Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	pageCount := 0
	if len(items) > 0 {
		pageCount = (len(items)-1)/pageSize + 1
	}

	start := min((page-1)*pageSize, len(items))
	end := min(start+pageSize, len(items))

	return models.Page[T]{
		PageInfo: models.PageInfo{ResultCount: len(items), PageCount: pageCount, PageSize: pageSize, Page: page},
		Results:  append([]T{}, items[start:end]...),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
