// Package testutil provides in-memory archive and identity-provider servers
// for testing the noark5 client.
package testutil

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
	"time"
)

// APIPath is the path prefix the mock archive serves under.
const APIPath = "/rms/api/public/noark5/v1"

// MockResponse defines a canned response for a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock archive.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// QueryRequest is the decoded body of a query request.
type QueryRequest struct {
	Type       string            `json:"type"`
	Query      string            `json:"query"`
	Parameters map[string]string `json:"parameters"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	SortOrder  []struct {
		Field string `json:"field"`
		Order string `json:"order"`
	} `json:"sortOrder"`
	PublicUse *bool `json:"publicUse"`
}

// CodeValue is a code-list value as stored by the mock.
type CodeValue struct {
	Code        string `json:"code"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Authority   string `json:"authority,omitempty"`
}

// Object is an archive object as stored by the mock.
type Object struct {
	Type    string
	ID      string
	Version int
	Fields  map[string]any
	Links   map[string][]string

	seq int
}

type wireObject struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Version string          `json:"version,omitempty"`
	Fields  json.RawMessage `json:"fields,omitempty"`
}

type transactionAction struct {
	Action   string          `json:"action"`
	Type     string          `json:"type"`
	ID       string          `json:"id"`
	Fields   json.RawMessage `json:"fields"`
	Ref      string          `json:"ref"`
	LinkToID string          `json:"linkToId"`
}

// inverseRefs maintains the opposite side of links so queries can follow
// references from either end.
var inverseRefs = map[string]string{
	"Journalpost.refEksternId":                "refRegistrering",
	"Saksmappe.refEksternId":                  "refMappe",
	"EksternId.refRegistrering":               "refEksternId",
	"EksternId.refMappe":                      "refEksternId",
	"Journalpost.refKorrespondansepart":       "refRegistrering",
	"Basisregistrering.refKorrespondansepart": "refRegistrering",
	"Korrespondansepart.refRegistrering":      "refKorrespondansepart",
	"Journalpost.refAvskrivning":              "refRegistrering",
	"Dokument.refRegistrering":                "refDokument",
	"Dokumentversjon.refDokument":             "refDokumentversjon",
	"Journalpost.refMappe":                    "refRegistrering",
	"Basisregistrering.refMappe":              "refRegistrering",
	"Moeteregistrering.refMappe":              "refRegistrering",
	"Moetedeltaker.refMappe":                  "refMoetedeltaker",
}

// MockArchive is an in-memory Noark 5 archive service for testing.
// It stores saved objects, evaluates the subset of the query language the
// client uses ("a.b=@p", "x=[@from:@to]", "&&", "||") and serves code lists
// and files.
type MockArchive struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Token is the bearer token requests must carry. Empty accepts any.
	Token string

	// Now stamps opprettetDato on saved objects.
	Now func() time.Time

	objects   map[string]*Object
	codeLists map[string][]CodeValue
	files     map[string][]byte
	nextID    int
	queryHook func(QueryRequest) *MockResponse

	// Tracking
	RequestCount int
	Requests     []RecordedRequest
}

// NewMockArchive creates and starts a mock archive server.
func NewMockArchive() *MockArchive {
	mock := &MockArchive{
		handlers:  make(map[string]func(w http.ResponseWriter, r *http.Request)),
		objects:   make(map[string]*Object),
		codeLists: make(map[string][]CodeValue),
		files:     make(map[string][]byte),
		Now:       time.Now,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		token := mock.Token
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			r.Body = io.NopCloser(strings.NewReader(string(body)))
			handler(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || (token != "" && auth != "Bearer "+token) {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		mock.route(w, r, body)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockArchive) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockArchive) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockArchive) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
}

// SetHandler overrides the handler for a path relative to APIPath, e.g. "/query".
func (m *MockArchive) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[APIPath+path] = handler
}

// SetResponse configures a canned response for a path relative to APIPath.
func (m *MockArchive) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetQueryHook installs fn to inspect every decoded query. A non-nil return
// is written instead of evaluating the query. Pass nil to remove the hook.
func (m *MockArchive) SetQueryHook(fn func(QueryRequest) *MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryHook = fn
}

// ClearHandler removes an override set with SetHandler or SetResponse.
func (m *MockArchive) ClearHandler(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, APIPath+path)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockArchive) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Recorded returns a copy of the requests received so far.
func (m *MockArchive) Recorded() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RecordedRequest(nil), m.Requests...)
}

// Queries returns the decoded query requests received, optionally
// restricted to one object type.
func (m *MockArchive) Queries(objectType string) []QueryRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []QueryRequest
	for _, r := range m.Requests {
		if r.Path != APIPath+"/query" {
			continue
		}
		var q QueryRequest
		if err := json.Unmarshal(r.Body, &q); err != nil {
			continue
		}
		if objectType == "" || q.Type == objectType {
			out = append(out, q)
		}
	}
	return out
}

// CountRequests returns how many requests hit a path relative to APIPath.
func (m *MockArchive) CountRequests(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.Requests {
		if r.Path == APIPath+path {
			n++
		}
	}
	return n
}

// AddObject stores an object directly and returns its id.
// Fields may contain "ref..." keys whose string values become links.
func (m *MockArchive) AddObject(objectType string, fields map[string]any) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj := m.newObject(objectType, "")
	for k, v := range fields {
		if id, ok := v.(string); ok && strings.HasPrefix(k, "ref") {
			m.link(obj, k, id)
			continue
		}
		obj.Fields[k] = v
	}
	if _, ok := obj.Fields["opprettetDato"]; !ok {
		obj.Fields["opprettetDato"] = m.Now().UTC().Format(time.RFC3339Nano)
	}
	return obj.ID
}

// Object returns a stored object by id.
func (m *MockArchive) Object(id string) (*Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	return obj, ok
}

// ObjectsOfType returns stored objects of a type in creation order.
func (m *MockArchive) ObjectsOfType(objectType string) []*Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ofType(objectType)
}

// SetCodeList replaces the values of a code list.
func (m *MockArchive) SetCodeList(objectType, field string, values ...CodeValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codeLists[objectType+"."+field] = append([]CodeValue(nil), values...)
}

// CodeList returns the current values of a code list.
func (m *MockArchive) CodeList(objectType, field string) []CodeValue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]CodeValue(nil), m.codeLists[objectType+"."+field]...)
}

// File returns an uploaded file's content.
func (m *MockArchive) File(id string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[id]
	return data, ok
}

func (m *MockArchive) route(w http.ResponseWriter, r *http.Request, body []byte) {
	path := strings.TrimPrefix(r.URL.Path, APIPath)

	switch {
	case path == "/query" && r.Method == http.MethodPost:
		m.handleQuery(w, body)
	case path == "/transaction" && r.Method == http.MethodPost:
		m.handleTransaction(w, body)
	case path == "/code-lists" && r.Method == http.MethodPost:
		m.handleCodeLists(w, body)
	case strings.HasPrefix(path, "/code-lists/") && r.Method == http.MethodPut:
		m.handlePutCodeValue(w, strings.TrimPrefix(path, "/code-lists/"), body)
	case strings.HasPrefix(path, "/code-lists/") && r.Method == http.MethodDelete:
		m.handleDeleteCodeValue(w, strings.TrimPrefix(path, "/code-lists/"))
	case path == "/upload" && r.Method == http.MethodPost:
		m.handleUpload(w, body)
	case strings.HasPrefix(path, "/download/") && r.Method == http.MethodGet:
		m.handleDownload(w, strings.TrimPrefix(path, "/download/"))
	default:
		writeError(w, http.StatusNotFound, "no route for "+r.Method+" "+path)
	}
}

func (m *MockArchive) handleQuery(w http.ResponseWriter, body []byte) {
	var q QueryRequest
	if err := json.Unmarshal(body, &q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m.mu.RLock()
	hook := m.queryHook
	m.mu.RUnlock()
	if hook != nil {
		if resp := hook(q); resp != nil {
			for key, value := range resp.Headers {
				w.Header().Set(key, value)
			}
			w.WriteHeader(resp.StatusCode)
			w.Write([]byte(resp.Body))
			return
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []*Object
	for _, obj := range m.ofType(q.Type) {
		ok, err := m.matches(obj, q.Query, q.Parameters)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if ok {
			matches = append(matches, obj)
		}
	}

	for i := len(q.SortOrder) - 1; i >= 0; i-- {
		s := q.SortOrder[i]
		sort.SliceStable(matches, func(a, b int) bool {
			va, vb := fieldString(matches[a].Fields[s.Field]), fieldString(matches[b].Fields[s.Field])
			if s.Order == "desc" {
				return va > vb
			}
			return va < vb
		})
	}

	total := len(matches)
	start := min(q.Offset, total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}

	results := make([]wireObject, 0, end-start)
	for _, obj := range matches[start:end] {
		results = append(results, m.toWire(obj))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hasMore": end < total,
		"results": results,
	})
}

func (m *MockArchive) handleTransaction(w http.ResponseWriter, body []byte) {
	var req struct {
		Actions []transactionAction `json:"actions"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Temporary ids map to the permanent ids assigned in this transaction.
	ids := make(map[string]string)
	resolve := func(id string) string {
		if real, ok := ids[id]; ok {
			return real
		}
		return id
	}

	saved := make(map[string]*Object)
	var savedOrder []string

	for _, a := range req.Actions {
		switch a.Action {
		case "save":
			var fields map[string]any
			if len(a.Fields) > 0 {
				if err := json.Unmarshal(a.Fields, &fields); err != nil {
					writeError(w, http.StatusBadRequest, err.Error())
					return
				}
			}
			obj, exists := m.objects[resolve(a.ID)]
			if !exists {
				obj = m.newObject(a.Type, "")
				ids[a.ID] = obj.ID
				obj.Fields["opprettetDato"] = m.Now().UTC().Format(time.RFC3339Nano)
			} else {
				obj.Version++
			}
			for k, v := range fields {
				if id, ok := v.(string); ok && strings.HasPrefix(k, "ref") {
					m.link(obj, k, resolve(id))
					continue
				}
				obj.Fields[k] = v
			}
			m.applyDefaults(obj)
			if _, ok := saved[a.ID]; !ok {
				savedOrder = append(savedOrder, a.ID)
			}
			saved[a.ID] = obj
		case "link":
			obj, ok := m.objects[resolve(a.ID)]
			if !ok {
				writeError(w, http.StatusBadRequest, "link from unknown object "+a.ID)
				return
			}
			target := resolve(a.LinkToID)
			if _, ok := m.objects[target]; !ok {
				writeError(w, http.StatusBadRequest, "link to unknown object "+a.LinkToID)
				return
			}
			m.link(obj, a.Ref, target)
		case "unlink":
			obj, ok := m.objects[resolve(a.ID)]
			if !ok {
				writeError(w, http.StatusBadRequest, "unlink from unknown object "+a.ID)
				return
			}
			m.unlink(obj, a.Ref, resolve(a.LinkToID))
		case "delete":
			id := resolve(a.ID)
			if _, ok := m.objects[id]; !ok {
				writeError(w, http.StatusNotFound, "unknown object "+a.ID)
				return
			}
			delete(m.objects, id)
		default:
			writeError(w, http.StatusBadRequest, "unknown action "+a.Action)
			return
		}
	}

	out := make(map[string]wireObject, len(saved))
	for _, key := range savedOrder {
		out[key] = m.toWire(saved[key])
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": out})
}

func (m *MockArchive) handleCodeLists(w http.ResponseWriter, body []byte) {
	var req struct {
		Type  string `json:"type"`
		Field string `json:"field"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.codeLists))
	for k := range m.codeLists {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := []map[string]any{}
	for _, k := range keys {
		typ, field, _ := strings.Cut(k, ".")
		if (req.Type != "" && req.Type != typ) || (req.Field != "" && req.Field != field) {
			continue
		}
		results = append(results, map[string]any{
			"type":   typ,
			"field":  field,
			"values": append([]CodeValue{}, m.codeLists[k]...),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (m *MockArchive) handlePutCodeValue(w http.ResponseWriter, rest string, body []byte) {
	typ, field, ok := strings.Cut(rest, "/")
	if !ok || strings.Contains(field, "/") {
		writeError(w, http.StatusNotFound, "bad code-list path")
		return
	}
	var v CodeValue
	if err := json.Unmarshal(body, &v); err != nil || v.Code == "" {
		writeError(w, http.StatusBadRequest, "code value with code required")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := typ + "." + field
	values := m.codeLists[key]
	replaced := false
	for i := range values {
		if values[i].Code == v.Code {
			values[i] = v
			replaced = true
		}
	}
	if !replaced {
		values = append(values, v)
	}
	m.codeLists[key] = values
	writeJSON(w, http.StatusOK, v)
}

func (m *MockArchive) handleDeleteCodeValue(w http.ResponseWriter, rest string) {
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		writeError(w, http.StatusNotFound, "bad code-list path")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := parts[0] + "." + parts[1]
	values := m.codeLists[key]
	for i := range values {
		if values[i].Code == parts[2] {
			m.codeLists[key] = append(values[:i:i], values[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown code "+parts[2])
}

func (m *MockArchive) handleUpload(w http.ResponseWriter, body []byte) {
	m.mu.Lock()
	m.nextID++
	id := fmt.Sprintf("file-%d", m.nextID)
	m.files[id] = body
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (m *MockArchive) handleDownload(w http.ResponseWriter, id string) {
	m.mu.RLock()
	data, ok := m.files[id]
	m.mu.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, "unknown file "+id)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// newObject must be called with m.mu held.
func (m *MockArchive) newObject(objectType, id string) *Object {
	m.nextID++
	if id == "" {
		id = fmt.Sprintf("%d", 1000+m.nextID)
	}
	obj := &Object{
		Type:    objectType,
		ID:      id,
		Version: 1,
		Fields:  make(map[string]any),
		Links:   make(map[string][]string),
		seq:     m.nextID,
	}
	m.objects[id] = obj
	return obj
}

// applyDefaults sets the values the service computes on save.
func (m *MockArchive) applyDefaults(obj *Object) {
	switch obj.Type {
	case "Dokumentversjon":
		if _, ok := obj.Fields["versjonsnummer"]; !ok {
			obj.Fields["versjonsnummer"] = 1
		}
		if id, ok := obj.Fields["dokumentfil"].(string); ok {
			if data, ok := m.files[id]; ok {
				obj.Fields["filstoerrelse"] = len(data)
			}
		}
	case "Journalpost":
		if _, ok := obj.Fields["journalstatus"]; !ok {
			obj.Fields["journalstatus"] = map[string]any{"code": "J"}
		}
	case "Arkiv":
		if _, ok := obj.Fields["arkivstatus"]; !ok {
			obj.Fields["arkivstatus"] = map[string]any{"code": "O"}
		}
	case "Arkivdel":
		if _, ok := obj.Fields["arkivdelstatus"]; !ok {
			obj.Fields["arkivdelstatus"] = map[string]any{"code": "A"}
		}
	}
}

func (m *MockArchive) link(obj *Object, ref, target string) {
	if !contains(obj.Links[ref], target) {
		obj.Links[ref] = append(obj.Links[ref], target)
	}
	inverse, ok := inverseRefs[obj.Type+"."+ref]
	if !ok {
		return
	}
	if other, ok := m.objects[target]; ok && !contains(other.Links[inverse], obj.ID) {
		other.Links[inverse] = append(other.Links[inverse], obj.ID)
	}
}

func (m *MockArchive) unlink(obj *Object, ref, target string) {
	obj.Links[ref] = remove(obj.Links[ref], target)
	if inverse, ok := inverseRefs[obj.Type+"."+ref]; ok {
		if other, ok := m.objects[target]; ok {
			other.Links[inverse] = remove(other.Links[inverse], obj.ID)
		}
	}
}

func (m *MockArchive) ofType(objectType string) []*Object {
	var out []*Object
	for _, obj := range m.objects {
		if obj.Type == objectType {
			out = append(out, obj)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (m *MockArchive) toWire(obj *Object) wireObject {
	fields := make(map[string]any, len(obj.Fields)+len(obj.Links))
	for k, v := range obj.Fields {
		fields[k] = v
	}
	for ref, ids := range obj.Links {
		if len(ids) > 0 {
			fields[ref] = ids[0]
		}
	}
	raw, _ := json.Marshal(fields)
	return wireObject{
		Type:    obj.Type,
		ID:      obj.ID,
		Version: strconv.Itoa(obj.Version),
		Fields:  raw,
	}
}

// matches evaluates a query filter against obj.
func (m *MockArchive) matches(obj *Object, query string, params map[string]string) (bool, error) {
	if strings.TrimSpace(query) == "" {
		return true, nil
	}
	for _, disjunct := range strings.Split(query, "||") {
		all := true
		for _, cond := range strings.Split(disjunct, "&&") {
			ok, err := m.evalCondition(obj, strings.TrimSpace(cond), params)
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockArchive) evalCondition(obj *Object, cond string, params map[string]string) (bool, error) {
	path, value, ok := strings.Cut(cond, "=")
	if !ok {
		return false, fmt.Errorf("unsupported condition %q", cond)
	}
	values := m.resolvePath(obj, strings.Split(strings.TrimSpace(path), "."))
	value = strings.TrimSpace(value)

	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		lo, hi, ok := strings.Cut(strings.Trim(value, "[]"), ":")
		if !ok {
			return false, fmt.Errorf("unsupported range %q", value)
		}
		from, err := paramTime(params, lo)
		if err != nil {
			return false, err
		}
		to, err := paramTime(params, hi)
		if err != nil {
			return false, err
		}
		for _, v := range values {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				continue
			}
			if !t.Before(from) && !t.After(to) {
				return true, nil
			}
		}
		return false, nil
	}

	want, err := param(params, value)
	if err != nil {
		return false, err
	}
	return contains(values, want), nil
}

// resolvePath follows ref segments through links and returns the values of
// the final segment on every reachable object.
func (m *MockArchive) resolvePath(obj *Object, segs []string) []string {
	if len(segs) == 1 {
		if segs[0] == "id" {
			return []string{obj.ID}
		}
		if ids, ok := obj.Links[segs[0]]; ok {
			return ids
		}
		if v, ok := obj.Fields[segs[0]]; ok {
			return []string{fieldString(v)}
		}
		return nil
	}
	var out []string
	for _, id := range obj.Links[segs[0]] {
		if next, ok := m.objects[id]; ok {
			out = append(out, m.resolvePath(next, segs[1:])...)
		}
	}
	return out
}

func param(params map[string]string, ref string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(ref), "@")
	v, ok := params[name]
	if !ok {
		return "", fmt.Errorf("unbound parameter @%s", name)
	}
	return v, nil
}

func paramTime(params map[string]string, ref string) (time.Time, error) {
	v, err := param(params, ref)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, v)
}

func fieldString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case map[string]any:
		return fieldString(x["code"])
	default:
		return fmt.Sprint(x)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewBadRequestResponse creates a 400 Bad Request response.
func NewBadRequestResponse(msg string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       fmt.Sprintf(`{"error": %q}`, msg),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
