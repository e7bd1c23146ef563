// Package jsonrpctest provides an in-process fake of the Gripp API for tests.
//
// A Server speaks the API's wire format: it accepts a JSON array of envelopes
// POSTed to /public/api3.php with a bearer token, dispatches every envelope to
// a registered method and replies with an array of {id, result} or
// {id, error} objects.
//
//	srv := jsonrpctest.NewServer("test-token")
//	defer srv.Close()
//	srv.Register("company", &CompanyMethods{})
//	c, _ := jsonrpc.New("test-token", srv.URL)
//
// Methods are registered from a receiver the same way as a JSON-RPC server:
//
//	func (m *CompanyMethods) Get(ctx context.Context, params GetParams) (any, error)
//
// Positional params map onto the params struct fields in declaration order.
// Missing trailing params leave their fields zero.
//
// Faults queued with Enqueue are served, in order, before any method is
// dispatched. They script HTTP statuses, headers, raw bodies and dropped
// connections.
package jsonrpctest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
)

// Path is the API endpoint path.
const Path = "/public/api3.php"

// Error is a structured error payload. Methods return it to send
// {"code": ..., "message": ...}; any other error is sent as a plain string.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Envelope is one call as received by the server.
type Envelope struct {
	Method           string          `json:"method"`
	Params           json.RawMessage `json:"params"`
	ID               json.RawMessage `json:"id"`
	ConnectorVersion int             `json:"apiconnectorversion"`
	JSONRPC          *string         `json:"jsonrpc,omitempty"`
}

// Request is a recorded HTTP request.
type Request struct {
	Method    string
	Path      string
	Header    http.Header
	Body      []byte
	Envelopes []Envelope
}

// Fault is a scripted reply served instead of dispatching the request.
type Fault struct {
	Status int
	Header map[string]string
	Body   string
	// Drop closes the connection without writing a response.
	Drop bool
}

// rpcMethod holds reflection data for a registered method.
type rpcMethod struct {
	receiver    reflect.Value
	method      reflect.Method
	paramType   reflect.Type
	paramFields []int
}

func (m *rpcMethod) call(ctx context.Context, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(-32603, "internal error")
		}
	}()

	param := reflect.New(m.paramType)
	var paramList []json.RawMessage
	if len(params) > 0 && string(params) != "null" {
		if err := json.Unmarshal(params, &paramList); err != nil {
			return nil, NewError(-32602, "params must be an array")
		}
	}
	if len(paramList) > len(m.paramFields) {
		return nil, NewError(-32602, "invalid number of params")
	}
	for i, rawElem := range paramList {
		field := param.Elem().Field(m.paramFields[i])
		if err := json.Unmarshal(rawElem, field.Addr().Interface()); err != nil {
			return nil, NewError(-32602, "invalid params")
		}
	}

	results := m.method.Func.Call([]reflect.Value{m.receiver, reflect.ValueOf(ctx), param.Elem()})
	if !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// HandlerFunc handles one envelope with its raw params.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Server is a fake API server backed by httptest.Server.
type Server struct {
	*httptest.Server

	// Token is the expected bearer token. Empty accepts any token.
	Token string

	mu       sync.Mutex
	methods  map[string]HandlerFunc
	faults   []Fault
	requests []Request
}

// NewServer starts a fake server expecting token.
func NewServer(token string) *Server {
	s := &Server{
		Token:   token,
		methods: make(map[string]HandlerFunc),
	}
	s.Server = httptest.NewServer(s)
	return s
}

// Handle registers fn under the full method name, e.g. "company.get".
func (s *Server) Handle(name string, fn HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[name] = fn
}

// Register adds the exported methods of receiver under namespace, so that
// "company" + "Get" is served as "company.get". Method names are lowercased
// to match the API's convention. Methods without the signature
// func(context.Context, <struct>) (result, error) are skipped.
func (s *Server) Register(namespace string, receiver interface{}) {
	val := reflect.ValueOf(receiver)
	typ := val.Type()

	for i := 0; i < val.NumMethod(); i++ {
		method := typ.Method(i)
		if !method.IsExported() {
			continue
		}
		m := parseMethod(val, method)
		if m == nil {
			continue
		}
		name := strings.ToLower(method.Name)
		if namespace != "" {
			name = namespace + "." + name
		}

		s.mu.Lock()
		if _, exists := s.methods[name]; exists {
			s.mu.Unlock()
			panic("jsonrpctest: method name collision: " + name)
		}
		s.methods[name] = m.call
		s.mu.Unlock()
	}
}

// parseMethod extracts method signature information via reflection.
func parseMethod(receiver reflect.Value, method reflect.Method) *rpcMethod {
	ft := method.Func.Type()
	if ft.NumIn() != 3 || ft.In(1) != reflect.TypeOf((*context.Context)(nil)).Elem() {
		return nil
	}
	if ft.NumOut() != 2 || ft.Out(1) != reflect.TypeOf((*error)(nil)).Elem() {
		return nil
	}
	paramType := ft.In(2)
	if paramType.Kind() != reflect.Struct {
		return nil
	}

	fields := make([]int, 0, paramType.NumField())
	for i := 0; i < paramType.NumField(); i++ {
		f := paramType.Field(i)
		if !f.IsExported() || f.Tag.Get("json") == "-" {
			continue
		}
		fields = append(fields, i)
	}
	return &rpcMethod{
		receiver:    receiver,
		method:      method,
		paramType:   paramType,
		paramFields: fields,
	}
}

// Enqueue schedules faults to be served by the next requests, in order.
func (s *Server) Enqueue(faults ...Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, faults...)
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestCount returns the number of HTTP requests received, faults included.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type reply struct {
	ID     json.RawMessage `json:"id"`
	Result interface{}     `json:"result,omitempty"`
	Error  interface{}     `json:"error,omitempty"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rec := Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	}
	_ = json.Unmarshal(body, &rec.Envelopes)

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	var fault *Fault
	if len(s.faults) > 0 {
		f := s.faults[0]
		s.faults = s.faults[1:]
		fault = &f
	}
	s.mu.Unlock()

	if fault != nil {
		s.serveFault(w, fault)
		return
	}

	if r.Method != http.MethodPost || r.URL.Path != Path {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	var envs []Envelope
	if err := json.Unmarshal(body, &envs); err != nil {
		writeJSON(w, http.StatusOK, []reply{{ID: json.RawMessage("null"), Error: NewError(-32700, "parse error")}})
		return
	}

	replies := make([]reply, 0, len(envs))
	for _, env := range envs {
		replies = append(replies, s.dispatch(r.Context(), env))
	}
	writeJSON(w, http.StatusOK, replies)
}

func (s *Server) dispatch(ctx context.Context, env Envelope) reply {
	rep := reply{ID: env.ID}
	if len(rep.ID) == 0 {
		rep.ID = json.RawMessage("null")
	}
	if env.JSONRPC != nil {
		rep.Error = NewError(-32600, "unexpected jsonrpc member")
		return rep
	}
	if env.ConnectorVersion == 0 {
		rep.Error = NewError(-32600, "missing apiconnectorversion")
		return rep
	}

	s.mu.Lock()
	fn, ok := s.methods[env.Method]
	s.mu.Unlock()
	if !ok {
		rep.Error = NewError(-32601, "method not found: "+env.Method)
		return rep
	}

	result, err := fn(ctx, env.Params)
	if err != nil {
		rep.Error = mapError(err)
		return rep
	}
	if result == nil {
		// Keep the "result" member present for methods returning nothing.
		result = json.RawMessage("null")
	}
	rep.Result = result
	return rep
}

// mapError keeps structured errors and sends anything else as a string,
// the way the API reports permission failures.
func mapError(err error) interface{} {
	if rpcErr, ok := err.(*Error); ok {
		return rpcErr
	}
	return err.Error()
}

func (s *Server) serveFault(w http.ResponseWriter, f *Fault) {
	if f.Drop {
		hj, ok := w.(http.Hijacker)
		if !ok {
			panic("jsonrpctest: response writer does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}
	for k, v := range f.Header {
		w.Header().Set(k, v)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	status := f.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, f.Body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Page builds a list result as returned by "<entity>.get".
func Page(rows []any, more bool) map[string]any {
	if rows == nil {
		rows = []any{}
	}
	return map[string]any{
		"rows":                     rows,
		"count":                    len(rows),
		"more_items_in_collection": more,
	}
}

// JSONBody marshals v for use as a Fault body.
func JSONBody(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("jsonrpctest: %v", err))
	}
	return string(b)
}
