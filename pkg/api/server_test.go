package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/primeslot/primeslot/pkg/auth"
	"github.com/primeslot/primeslot/pkg/availability"
	"github.com/primeslot/primeslot/pkg/catalog"
	"github.com/primeslot/primeslot/pkg/meeting"
	"github.com/primeslot/primeslot/pkg/roster"
	"github.com/primeslot/primeslot/pkg/storage"
	"github.com/primeslot/primeslot/pkg/types"
)

const (
	testSecret = "0123456789abcdef0123456789abcdef"
	hour       = int64(3_600_000)
	t0         = int64(1_760_000_000_000)
)

type testEnv struct {
	srv    *Server
	store  *storage.BoltStore
	admins *auth.Admins
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	store, err := storage.NewBoltStore(t.TempDir(), storage.Options{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessions := auth.NewSessionManager(store, time.Hour)
	admins := auth.NewAdmins(store)
	srv := NewServer(cfg, Deps{
		Store:        store,
		Catalog:      catalog.NewService(store, nil),
		Roster:       roster.NewService(store, nil),
		Meetings:     meeting.NewService(store, nil, meeting.DefaultConfig()),
		Availability: availability.NewEngine(store),
		Admins:       admins,
		Sessions:     sessions,
		Resolver:     auth.NewResolver(auth.ResolverConfig{Secret: testSecret}, sessions),
	})
	t.Cleanup(srv.limiter.stop)

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, storage.EventPath("e1"), types.Event{Title: "Mixer", Date: t0, Location: "Hall"}))
	for _, id := range []string{"ana", "bo"} {
		require.NoError(t, store.Set(ctx, storage.MemberPath(id), types.Member{FullName: id}))
	}
	return &testEnv{srv: srv, store: store, admins: admins}
}

func memberToken(t *testing.T, id string) string {
	t.Helper()
	tok, err := auth.MakeMemberToken(id, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends a request with an optional JSON body, bearer token and cookies
func (e *testEnv) do(t *testing.T, method, path string, body any, bearer string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	decode(t, rec, &body)
	return body.Error
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	_, err := e.admins.Create(context.Background(), "root@example.com", "correct-horse")
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "root@example.com", "password": "correct-horse"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == "admin_session" {
			assert.True(t, c.HttpOnly)
			return &http.Cookie{Name: c.Name, Value: c.Value}
		}
	}
	t.Fatal("admin_session cookie not set")
	return nil
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, Config{})

	for _, path := range []string{"/health", "/live", "/metrics"} {
		rec := env.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.do(t, http.MethodOptions, "/api/members/availability", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST,PATCH,DELETE,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestUnauthenticated(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.do(t, http.MethodGet, "/api/events", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", errorOf(t, rec))

	rec = env.do(t, http.MethodGet, "/api/events", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMemberCannotUseAdminRoutes(t *testing.T) {
	env := newTestEnv(t, Config{})

	rec := env.do(t, http.MethodGet, "/api/meetings", nil, memberToken(t, "ana"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminSession(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)

	rec := env.do(t, http.MethodGet, "/api/admin/me", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var me meResponse
	decode(t, rec, &me)
	assert.True(t, me.Authenticated)
	require.NotNil(t, me.Email)
	assert.Equal(t, "root@example.com", *me.Email)

	date := types.FlexMillis(t0)
	rec = env.do(t, http.MethodPost, "/api/events", catalog.EventInput{Title: "Gala", Date: &date, Location: "Roof"}, "", cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created idResponse
	decode(t, rec, &created)
	assert.NotEmpty(t, created.ID)

	rec = env.do(t, http.MethodGet, "/api/events/"+created.ID, nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/logout", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/admin/me", nil, "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodGet, "/api/events", nil, "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminLoginErrors(t *testing.T) {
	env := newTestEnv(t, Config{LoginBurst: 2, LoginRatePerSecond: 0.001})

	rec := env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "root@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email and password are required", errorOf(t, rec))

	rec = env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "root@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/admin/login", map[string]string{"email": "root@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginLimiterKeysOnPeerAddress(t *testing.T) {
	attempt := func(env *testEnv, forwarded string) int {
		body := strings.NewReader(`{"email":"root@example.com","password":"nope"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/admin/login", body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	env := newTestEnv(t, Config{LoginBurst: 1, LoginRatePerSecond: 0.001})
	assert.Equal(t, http.StatusUnauthorized, attempt(env, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, attempt(env, "203.0.113.2"))

	proxied := newTestEnv(t, Config{LoginBurst: 1, LoginRatePerSecond: 0.001, TrustProxyHeaders: true})
	assert.Equal(t, http.StatusUnauthorized, attempt(proxied, "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, attempt(proxied, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, attempt(proxied, "203.0.113.1"))
}

func TestMeetingFlow(t *testing.T) {
	env := newTestEnv(t, Config{})
	ana, bo := memberToken(t, "ana"), memberToken(t, "bo")

	req := map[string]any{"eventId": "e1", "aId": "ana", "scheduledAt": t0, "durationMin": 30, "topic": "intro"}

	// only the requester may ask
	rec := env.do(t, http.MethodPost, "/api/members/bo/meetings/request", req, bo)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/members/bo/meetings/request", req, ana)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created requestResponse
	decode(t, rec, &created)
	assert.True(t, created.OK)
	require.NotEmpty(t, created.ID)

	rec = env.do(t, http.MethodGet, "/api/members/bo/meetings/pending", nil, bo)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending pendingResponse
	decode(t, rec, &pending)
	require.Len(t, pending.Meetings, 1)
	assert.Equal(t, created.ID, pending.Meetings[0].ID)

	rec = env.do(t, http.MethodGet, "/api/members/bo/notifications", nil, bo)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes notificationsResponse
	decode(t, rec, &notes)
	require.Len(t, notes.Notifications, 1)
	assert.Equal(t, types.NotifyMeetingRequest, notes.Notifications[0].Type)

	respondPath := fmt.Sprintf("/api/members/bo/meetings/%s/respond", created.ID)
	rec = env.do(t, http.MethodPost, respondPath, map[string]string{"eventId": "e1", "action": "accept"}, bo)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPatch, respondPath, map[string]string{"eventId": "e1", "action": "decline"}, bo)
	assert.Equal(t, http.StatusConflict, rec.Code)

	calPath := fmt.Sprintf("/api/members/ana/calendar?from=%d&to=%d", t0-hour, t0+hour)
	rec = env.do(t, http.MethodGet, calPath, nil, ana)
	require.Equal(t, http.StatusOK, rec.Code)
	var cal availability.Calendar
	decode(t, rec, &cal)
	require.Len(t, cal.Busy, 1)
	require.Len(t, cal.Meetings, 1)
	assert.Equal(t, types.MeetingApproved, cal.Meetings[0].Status)
	assert.Len(t, cal.Free, 2)

	rec = env.do(t, http.MethodGet, "/api/members/bo/calendar", nil, ana)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/members/availability", map[string]any{"aId": "ana", "bId": "bo", "from": t0 - hour, "to": t0 + hour}, bo)
	require.Equal(t, http.StatusOK, rec.Code)
	var pair availability.Pair
	decode(t, rec, &pair)
	assert.Len(t, pair.Busy, 1)
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t, Config{})
	ana := memberToken(t, "ana")

	req := httptest.NewRequest(http.MethodPost, "/api/members/bo/meetings/request", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+ana)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", errorOf(t, rec))

	rec = env.do(t, http.MethodPost, "/api/members/undefined/meetings/request", map[string]any{"eventId": "e1", "aId": "ana", "scheduledAt": t0}, ana)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing valid aId or bId", errorOf(t, rec))

	rec = env.do(t, http.MethodPost, "/api/members/availability", map[string]any{"aId": "ana", "bId": "bo"}, ana)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportUpload(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)

	upload := func(t *testing.T, csv string, dryRun bool) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if csv != "" {
			fw, err := mw.CreateFormFile("file", "members.csv")
			require.NoError(t, err)
			_, err = fw.Write([]byte(csv))
			require.NoError(t, err)
		}
		require.NoError(t, mw.WriteField("dryRun", fmt.Sprint(dryRun)))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/events/e1/members/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		env.srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	csv := "Full Name,Email,Phone\nAna Lima,ana@example.com,555-0100\nBo Chen,bo@example.com,\n"

	rec := upload(t, csv, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp importResponse
	decode(t, rec, &resp)
	assert.True(t, resp.DryRun)
	assert.Equal(t, "e1", resp.EventID)
	assert.Equal(t, 2, resp.Summary.CreatedMembers)

	rec = env.do(t, http.MethodGet, "/api/events/e1/members", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var before recordsResponse
	decode(t, rec, &before)
	assert.Empty(t, before.Records)

	rec = upload(t, csv, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &resp)
	assert.Equal(t, 2, resp.Summary.LinkedToEvent)

	rec = env.do(t, http.MethodGet, "/api/events/e1/members", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var after recordsResponse
	decode(t, rec, &after)
	assert.Len(t, after.Records, 2)

	rec = upload(t, "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "file is required (xlsx/csv)", errorOf(t, rec))
}

func TestImportUploadWorkbook(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Name", "Email", "Mobile"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Ana Lima", "ana@example.com", "555-0100"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"Bo Chen", "bo@example.com"}))
	data, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "roster.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(data.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/events/e1/members/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp importResponse
	decode(t, rec, &resp)
	assert.Equal(t, 3, resp.Summary.TotalRows)
	assert.Equal(t, 2, resp.Summary.CreatedMembers)
	assert.Equal(t, 2, resp.Summary.LinkedToEvent)
	require.Len(t, resp.Summary.RowResults, 2)
	assert.Equal(t, 4, resp.Summary.RowResults[1].Index)
}

func TestEventSummary(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)
	ctx := context.Background()
	future := time.Now().Add(24 * time.Hour).UnixMilli()
	require.NoError(t, env.store.Set(ctx, storage.EventPath("e2"), types.Event{Title: "Gala", Date: future}))

	rec := env.do(t, http.MethodGet, "/api/events/summary", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum catalog.EventSummary
	decode(t, rec, &sum)
	assert.Equal(t, catalog.EventSummary{Total: 2, Upcoming: 1, Past: 1}, sum)

	rec = env.do(t, http.MethodGet, "/api/events/summary", nil, memberToken(t, "ana"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)

	rec := env.do(t, http.MethodGet, "/api/me", nil, memberToken(t, "ana"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var self selfResponse
	decode(t, rec, &self)
	assert.Equal(t, "ana", self.MemberID)
	require.NotNil(t, self.Member)
	assert.Equal(t, "ana", self.Member.FullName)

	rec = env.do(t, http.MethodGet, "/api/me?memberId=bo", nil, memberToken(t, "ana"))
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &self)
	assert.Equal(t, "ana", self.MemberID)

	rec = env.do(t, http.MethodGet, "/api/me", nil, memberToken(t, "ghost"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me", nil, "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/me?memberId=bo", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &self)
	assert.Equal(t, "bo", self.MemberID)
}

func TestSummaryAndErrors(t *testing.T) {
	env := newTestEnv(t, Config{})
	cookie := env.login(t)

	rec := env.do(t, http.MethodGet, "/api/events/e1/meetings/summary", nil, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum meeting.Summary
	decode(t, rec, &sum)
	assert.Equal(t, 0, sum.Total)

	rec = env.do(t, http.MethodGet, "/api/events/missing/meetings/summary", nil, "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/members/nobody", nil, "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/meetings?page=abc", nil, "", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
