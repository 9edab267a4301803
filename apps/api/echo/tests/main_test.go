package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"testing"

	. "github.com/trezcool/madrasa/apps/api/echo"
	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/activity"
	"github.com/trezcool/madrasa/core/behavior"
	"github.com/trezcool/madrasa/core/exam"
	"github.com/trezcool/madrasa/core/schedule"
	metricsvc "github.com/trezcool/madrasa/services/metrics"
	"github.com/trezcool/madrasa/storage/blob"
	"github.com/trezcool/madrasa/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*Server
	conf   *core.Config
	logger *testutil.Logger
	blobs  *blob.MemoryStore
	token  string

	activities *activity.Store
	reports    *behavior.Store
	exams      *exam.Store
	schedules  *schedule.Service
}

func setup(t *testing.T) *testApp {
	conf := testutil.NewConfig()
	logger := new(testutil.Logger)
	validate, translator := core.NewValidator()

	app := &testApp{
		conf:       conf,
		logger:     logger,
		blobs:      blob.NewMemoryStore(),
		token:      testutil.GetToken(t, conf, "admin"),
		activities: activity.NewStore(validate),
		reports:    behavior.NewStore(validate),
		exams:      exam.NewStore(validate),
	}
	app.schedules = schedule.NewService(schedule.NewStore(validate), app.blobs, conf, logger)

	// set up server
	app.Server = NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Translator: translator,
			Metrics:    metricsvc.NewRecorder("madrasa"),
			Activities: app.activities,
			Behavior:   app.reports,
			Exams:      app.exams,
			Schedules:  app.schedules,
		},
	)
	return app
}

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request holding one `document` part.
func newUploadRequest(t *testing.T, path, token, filename, contentType string, content []byte) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="document"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart(): %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("part.Write(): %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart.Close(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
