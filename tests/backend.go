// Package testutil runs an in-memory school platform backend for integration tests.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
)

// resources served as CRUD collections under /api/schools/:id
var resources = map[string]string{
	"teachers":  "teacher",
	"locations": "location",
	"classes":   "class",
	"students":  "student",
	"admins":    "admin",
}

type (
	// Record is one stored entity, as rendered in JSON responses.
	Record map[string]interface{}

	// Request is what the backend received, recorded before any handler ran.
	Request struct {
		Method        string
		Path          string
		Route         string
		Query         url.Values
		Body          string
		ContentType   string
		Authorization string
	}

	// Failure replaces the response of a route.
	Failure struct {
		Status int
		Body   string
	}

	Admin struct {
		UserID   string
		Email    string
		Password string
		Name     string
		Schools  []string
	}

	school struct {
		id              string
		name            string
		records         map[string][]Record
		theme           Record
		payments        []Record
		paymentsEnabled bool
	}

	invitation struct {
		email    string
		schoolID string
	}

	Backend struct {
		Server *httptest.Server

		mu          sync.Mutex
		seq         int
		schools     map[string]*school
		admins      map[string]*Admin // by email
		tokens      map[string]string // token -> email
		invitations map[string]invitation
		failures    map[string]Failure
		requests    []Request
		iconSeq     []int

		// ConfirmEmail makes sign-up answer email_confirmation_required.
		ConfirmEmail bool
	}
)

// NewBackend starts the backend; it is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		schools:     make(map[string]*school),
		admins:      make(map[string]*Admin),
		tokens:      make(map[string]string),
		invitations: make(map[string]invitation),
		failures:    make(map[string]Failure),
		iconSeq:     []int{5, 1, 19, 3},
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return prefix + "-" + strconv.Itoa(b.seq)
}

// seeding

// AddSchool creates an empty school and returns its id.
func (b *Backend) AddSchool(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &school{id: b.nextID("school"), name: name, records: make(map[string][]Record)}
	b.schools[s.id] = s
	return s.id
}

// AddAdmin creates an admin of the given schools and returns the user id.
func (b *Backend) AddAdmin(email, password, name string, schoolIDs ...string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addAdmin(email, password, name, schoolIDs...).UserID
}

func (b *Backend) addAdmin(email, password, name string, schoolIDs ...string) *Admin {
	adm := &Admin{UserID: b.nextID("user"), Email: email, Password: password, Name: name, Schools: schoolIDs}
	b.admins[email] = adm
	return adm
}

// Token issues an access token for a seeded admin.
func (b *Backend) Token(email string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueToken(email)
}

func (b *Backend) issueToken(email string) string {
	var userID string
	if adm := b.admins[email]; adm != nil {
		userID = adm.UserID
	}
	token := signToken(userID, b.nextID("token"))
	b.tokens[token] = email
	return token
}

// ExpireTokens invalidates every issued token: the next authenticated request gets a 401.
func (b *Backend) ExpireTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]string)
}

// Invite registers an invitation token that accept-invitation will honour.
func (b *Backend) Invite(token, email, schoolID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invitations[token] = invitation{email: email, schoolID: schoolID}
}

// Add stores rec in a school's collection, giving it an id and is_active if missing.
func (b *Backend) Add(schoolID, resource string, rec Record) Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.schools[schoolID]
	if s == nil {
		panic(fmt.Sprintf("testutil: unknown school %s", schoolID))
	}
	rec = copyRecord(rec)
	if _, ok := rec["id"]; !ok && resource != "admins" {
		rec["id"] = b.nextID(resources[resource])
	}
	if _, ok := rec["is_active"]; !ok {
		rec["is_active"] = true
	}
	s.records[resource] = append(s.records[resource], rec)
	return copyRecord(rec)
}

// Records returns a copy of a school's collection.
func (b *Backend) Records(schoolID, resource string) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.schools[schoolID]
	if s == nil {
		return nil
	}
	recs := make([]Record, 0, len(s.records[resource]))
	for _, rec := range s.records[resource] {
		recs = append(recs, copyRecord(rec))
	}
	return recs
}

func (b *Backend) Theme(schoolID string) Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s := b.schools[schoolID]; s != nil {
		return copyRecord(s.theme)
	}
	return nil
}

func (b *Backend) EnablePayments(schoolID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s := b.schools[schoolID]; s != nil {
		s.paymentsEnabled = true
	}
}

// SetIconSequence sets the code served by available-icon-sequence. No ids means an empty answer.
func (b *Backend) SetIconSequence(ids ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.iconSeq = append([]int(nil), ids...)
}

// failure injection

// Fail makes every call to route (e.g. "/api/schools/:id/teachers") answer status and body.
func (b *Backend) Fail(method, route string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+route] = Failure{Status: status, Body: body}
}

func (b *Backend) Recover(method, route string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, method+" "+route)
}

// request recording

func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// Calls returns the recorded requests to a route.
func (b *Backend) Calls(method, route string) []Request {
	var reqs []Request
	for _, req := range b.Requests() {
		if req.Method == method && req.Route == route {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// Form parses a form-encoded body.
func (req Request) Form() url.Values {
	vals, _ := url.ParseQuery(req.Body)
	return vals
}

// server

func (b *Backend) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(b.record, b.inject)

	auth := e.Group("/api/auth")
	auth.POST("/school-admin/signin", b.signIn)
	auth.POST("/school-admin/signup", b.signUp)
	auth.POST("/password-reset-request", b.passwordReset)
	auth.POST("/invitations/accept", b.acceptInvitation)
	auth.GET("/school-admin/roles", b.roles, b.authenticate)

	sch := e.Group("/api/schools/:id", b.authenticate, b.member)
	for name := range resources {
		sch.GET("/"+name, b.list(name))
		sch.PUT("/"+name+"/:itemId", b.update(name))
		sch.DELETE("/"+name+"/:itemId", b.remove(name))
		if name != "admins" {
			sch.POST("/"+name, b.create(name))
		}
	}
	sch.POST("/teachers/:itemId/resend-invitation", b.resendInvitation("teachers"))
	sch.POST("/admins/:itemId/resend-invitation", b.resendInvitation("admins"))
	sch.POST("/admins/invite", b.inviteAdmin)
	sch.GET("/students/available-icon-sequence", b.availableIconSequence)
	sch.GET("/theme", b.getTheme)
	sch.POST("/theme", b.setTheme)
	sch.POST("/branding/upload", b.upload)
	sch.GET("/payments", b.listPayments)
	sch.GET("/payments/status", b.paymentStatus)
	sch.POST("/payments", b.createPayment)
	sch.GET("/dashboard", b.dashboard)
	return e
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"detail": msg})
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Route:         c.Path(),
			Query:         r.URL.Query(),
			Body:          string(body),
			ContentType:   r.Header.Get(echo.HeaderContentType),
			Authorization: r.Header.Get(echo.HeaderAuthorization),
		})
		b.mu.Unlock()
		return next(c)
	}
}

func (b *Backend) inject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		f, ok := b.failures[c.Request().Method+" "+c.Path()]
		b.mu.Unlock()
		if !ok {
			return next(c)
		}
		if f.Body == "" {
			return c.NoContent(f.Status)
		}
		return c.Blob(f.Status, echo.MIMEApplicationJSONCharsetUTF8, []byte(f.Body))
	}
}

func (b *Backend) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		b.mu.Lock()
		email, ok := b.tokens[token]
		b.mu.Unlock()
		if token == "" || !ok || !verifyToken(token) {
			return detail(c, http.StatusUnauthorized, "Not authenticated")
		}
		c.Set("email", email)
		return next(c)
	}
}

func (b *Backend) member(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		s := b.schools[c.Param("id")]
		adm := b.admins[c.Get("email").(string)]
		b.mu.Unlock()
		if s == nil {
			return detail(c, http.StatusNotFound, "School not found")
		}
		if adm == nil || !contains(adm.Schools, s.id) {
			return detail(c, http.StatusForbidden, "You do not have access to this school")
		}
		return next(c)
	}
}

// auth

func (b *Backend) authResult(adm *Admin) echo.Map {
	res := echo.Map{"access_token": b.issueToken(adm.Email), "user_id": adm.UserID, "email": adm.Email}
	if len(adm.Schools) > 0 {
		res["school_id"] = adm.Schools[0]
	}
	return res
}

func (b *Backend) signIn(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	adm := b.admins[c.FormValue("email")]
	if adm == nil || adm.Password != c.FormValue("password") {
		return detail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	return c.JSON(http.StatusOK, b.authResult(adm))
}

func (b *Backend) signUp(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	email := c.FormValue("email")
	if _, ok := b.admins[email]; ok {
		return detail(c, http.StatusBadRequest, "Email already registered")
	}
	s := &school{id: b.nextID("school"), name: c.FormValue("school_name"), records: make(map[string][]Record)}
	b.schools[s.id] = s
	adm := b.addAdmin(email, c.FormValue("password"), c.FormValue("name"), s.id)
	if b.ConfirmEmail {
		return c.JSON(http.StatusOK, echo.Map{
			"email_confirmation_required": true,
			"message":                     "Please check your email to confirm your account",
		})
	}
	return c.JSON(http.StatusOK, b.authResult(adm))
}

func (b *Backend) passwordReset(c echo.Context) error {
	if c.FormValue("email") == "" {
		return detail(c, http.StatusBadRequest, "Email is required")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "If an account exists for this email, a reset link has been sent"})
}

func (b *Backend) acceptInvitation(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, ok := b.invitations[c.FormValue("token")]
	if !ok {
		return detail(c, http.StatusBadRequest, "Invalid or expired invitation")
	}
	delete(b.invitations, c.FormValue("token"))
	adm := b.addAdmin(inv.email, c.FormValue("password"), c.FormValue("name"), inv.schoolID)
	return c.JSON(http.StatusOK, b.authResult(adm))
}

func (b *Backend) roles(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	adm := b.admins[c.Get("email").(string)]
	roles := make([]echo.Map, 0)
	if adm != nil {
		for _, id := range adm.Schools {
			if s := b.schools[id]; s != nil {
				roles = append(roles, echo.Map{"school_id": s.id, "school_name": s.name, "role": "admin"})
			}
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": roles})
}

// collections

func (b *Backend) schoolOf(c echo.Context) *school { return b.schools[c.Param("id")] }

func (b *Backend) list(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		recs := make([]Record, 0)
		for _, rec := range b.schoolOf(c).records[name] {
			recs = append(recs, b.render(b.schoolOf(c), name, rec))
		}
		return c.JSON(http.StatusOK, echo.Map{name: recs})
	}
}

// render joins the related records the real backend embeds in listings.
func (b *Backend) render(s *school, name string, rec Record) Record {
	out := copyRecord(rec)
	switch name {
	case "classes":
		if t := find(s.records["teachers"], "id", rec["teacher_id"]); t != nil {
			out["teachers"] = echo.Map{"id": t["id"], "name": t["name"]}
		}
	case "students":
		if cl := find(s.records["classes"], "id", rec["class_id"]); cl != nil {
			out["classes"] = echo.Map{"id": cl["id"], "name": cl["name"]}
		}
	}
	return out
}

func (b *Backend) create(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		form, err := c.FormParams()
		if err != nil {
			return detail(c, http.StatusBadRequest, "Invalid form")
		}
		if form.Get("name") == "" {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"detail": []echo.Map{
				{"loc": []string{"body", "name"}, "msg": "field required"},
			}})
		}
		rec, err := formRecord(form)
		if err != nil {
			return detail(c, http.StatusUnprocessableEntity, err.Error())
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		s := b.schoolOf(c)
		rec["id"] = b.nextID(resources[name])
		if _, ok := rec["is_active"]; !ok {
			rec["is_active"] = true
		}
		switch name {
		case "teachers":
			rec["invitation_status"] = "pending"
		case "students":
			rec["registration_status"] = "pending"
			if seq, ok := rec["icon_sequence"].([]int); ok && b.sequenceTaken(s, seq, "") {
				return detail(c, http.StatusConflict, "This registration code is already used by another student")
			}
		}
		s.records[name] = append(s.records[name], rec)
		return c.JSON(http.StatusCreated, echo.Map{resources[name]: b.render(s, name, rec), "message": "Created"})
	}
}

func (b *Backend) update(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		form, err := c.FormParams()
		if err != nil {
			return detail(c, http.StatusBadRequest, "Invalid form")
		}
		changes, err := formRecord(form)
		if err != nil {
			return detail(c, http.StatusUnprocessableEntity, err.Error())
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		s := b.schoolOf(c)
		rec := findItem(s.records[name], c.Param("itemId"))
		if rec == nil {
			return detail(c, http.StatusNotFound, title(resources[name])+" not found")
		}
		if seq, ok := changes["icon_sequence"].([]int); ok && b.sequenceTaken(s, seq, c.Param("itemId")) {
			return detail(c, http.StatusConflict, "This registration code is already used by another student")
		}
		for k, v := range changes {
			rec[k] = v
		}
		return c.JSON(http.StatusOK, echo.Map{resources[name]: b.render(s, name, rec)})
	}
}

func (b *Backend) remove(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		s := b.schoolOf(c)
		recs := s.records[name]
		for i, rec := range recs {
			if matchesItem(rec, c.Param("itemId")) {
				s.records[name] = append(recs[:i:i], recs[i+1:]...)
				return c.JSON(http.StatusOK, echo.Map{"message": title(resources[name]) + " deleted"})
			}
		}
		return detail(c, http.StatusNotFound, title(resources[name])+" not found")
	}
}

func (b *Backend) resendInvitation(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		rec := findItem(b.schoolOf(c).records[name], c.Param("itemId"))
		if rec == nil {
			return detail(c, http.StatusNotFound, title(resources[name])+" not found")
		}
		rec["invitation_status"] = "pending"
		return c.JSON(http.StatusOK, echo.Map{"invitation_sent": true, "message": "Invitation sent"})
	}
}

func (b *Backend) inviteAdmin(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil || form.Get("email") == "" {
		return detail(c, http.StatusBadRequest, "Email is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.schoolOf(c)
	if find(s.records["admins"], "email", form.Get("email")) != nil {
		return detail(c, http.StatusConflict, "This email is already a team member")
	}
	rec := Record{
		"invitation_id":     b.nextID("invitation"),
		"name":              form.Get("name"),
		"email":             form.Get("email"),
		"invitation_status": "pending",
	}
	s.records["admins"] = append(s.records["admins"], rec)
	return c.JSON(http.StatusCreated, echo.Map{"admin": copyRecord(rec), "message": "Invitation sent"})
}

func (b *Backend) sequenceTaken(s *school, seq []int, exceptID string) bool {
	for _, rec := range s.records["students"] {
		if rec["id"] == exceptID {
			continue
		}
		if other, ok := rec["icon_sequence"].([]int); ok && equalInts(other, seq) {
			return true
		}
	}
	return false
}

func (b *Backend) availableIconSequence(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{
		"student_name":  c.QueryParam("student_name"),
		"icon_sequence": append([]int{}, b.iconSeq...),
	})
}

// branding

func (b *Backend) getTheme(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	theme := b.schoolOf(c).theme
	if theme == nil {
		return c.JSON(http.StatusOK, echo.Map{})
	}
	return c.JSON(http.StatusOK, echo.Map{"theme": copyRecord(theme)})
}

func (b *Backend) setTheme(c echo.Context) error {
	theme := Record{}
	if err := c.Bind(&theme); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid theme")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.schoolOf(c).theme = theme
	return c.JSON(http.StatusOK, echo.Map{"theme": copyRecord(theme), "message": "Theme updated"})
}

func (b *Backend) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return detail(c, http.StatusBadRequest, "No file uploaded")
	}
	assetType := c.FormValue("asset_type")
	return c.JSON(http.StatusOK, echo.Map{
		"url":        fmt.Sprintf("https://cdn.test/%s/%s/%s", c.Param("id"), assetType, fh.Filename),
		"asset_type": assetType,
		"message":    title(assetType) + " uploaded",
	})
}

// payments

func (b *Backend) listPayments(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps := make([]Record, 0)
	for _, p := range b.schoolOf(c).payments {
		ps = append(ps, copyRecord(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": ps})
}

func (b *Backend) paymentStatus(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.schoolOf(c).paymentsEnabled {
		return c.JSON(http.StatusOK, echo.Map{"enabled": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"enabled": true, "status": "active"})
}

func (b *Backend) createPayment(c echo.Context) error {
	p := Record{}
	if err := c.Bind(&p); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid payment")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.schoolOf(c)
	if !s.paymentsEnabled {
		return detail(c, http.StatusForbidden, "Payments are not enabled for this school")
	}
	p["id"] = b.nextID("payment")
	p["status"] = "pending"
	s.payments = append(s.payments, p)
	return c.JSON(http.StatusCreated, echo.Map{"payment": copyRecord(p)})
}

func (b *Backend) dashboard(c echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.schoolOf(c)
	active := 0
	for _, rec := range s.records["students"] {
		if rec["is_active"] == true {
			active++
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"school_level":  echo.Map{"active_students": active, "survey_completion_rate": 0},
		"teacher_level": echo.Map{"total_teachers": len(s.records["teachers"])},
	})
}

// helpers

// formRecord converts a form body into stored values: booleans and icon sequences are typed.
func formRecord(form url.Values) (Record, error) {
	rec := Record{}
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := form.Get(k)
		switch k {
		case "is_active":
			active, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("is_active must be a boolean")
			}
			rec[k] = active
		case "icon_sequence":
			if v == "" {
				rec[k] = nil
				continue
			}
			var seq []int
			for _, p := range strings.Split(v, ",") {
				n, err := strconv.Atoi(strings.TrimSpace(p))
				if err != nil {
					return nil, fmt.Errorf("icon_sequence must be a list of icon ids")
				}
				seq = append(seq, n)
			}
			rec[k] = seq
		default:
			rec[k] = v
		}
	}
	return rec, nil
}

func copyRecord(rec Record) Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		if seq, ok := v.([]int); ok {
			v = append([]int(nil), seq...)
		}
		out[k] = v
	}
	return out
}

func find(recs []Record, key string, val interface{}) Record {
	if val == nil || val == "" {
		return nil
	}
	for _, rec := range recs {
		if rec[key] == val {
			return rec
		}
	}
	return nil
}

// matchesItem accepts the record id or, for pending team invitations, the invitation id.
func matchesItem(rec Record, id string) bool {
	return rec["id"] == id || (rec["id"] == nil && rec["invitation_id"] == id)
}

func findItem(recs []Record, id string) Record {
	for _, rec := range recs {
		if matchesItem(rec, id) {
			return rec
		}
	}
	return nil
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
