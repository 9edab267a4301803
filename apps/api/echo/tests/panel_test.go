package tests

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/madrasa/core/activity"
	"github.com/trezcool/madrasa/core/behavior"
	"github.com/trezcool/madrasa/core/exam"
	"github.com/trezcool/madrasa/core/view"
)

func addActivity(t *testing.T, store *activity.Store, title, category, date string) activity.Activity {
	act, err := store.Add(activity.Activity{
		Title:       title,
		Description: title + " description",
		Category:    category,
		Date:        date,
		Time:        "09:00",
		Location:    "Main hall",
	})
	if err != nil {
		t.Fatalf("addActivity(): %v", err)
	}
	return act
}

func addExam(t *testing.T, store *exam.Store, subject, class, date, clock string) exam.Exam {
	ex, err := store.Add(exam.Exam{Subject: subject, ClassName: class, Date: date, Time: clock, Duration: 60, Room: "12"})
	if err != nil {
		t.Fatalf("addExam(): %v", err)
	}
	return ex
}

func TestHome(t *testing.T) {
	app := setup(t)

	rec := app.do(newRequest(http.MethodGet, "/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Madrasa API!", rec.Body.String())
}

func Test_panelApi_query(t *testing.T) {
	app := setup(t)

	sports := addActivity(t, app.activities, "يوم رياضي", activity.CategorySports, "2024-09-10")
	fair := addActivity(t, app.activities, "Science Fair", activity.CategoryScience, "2024-09-02")
	club := addActivity(t, app.activities, "Science club", activity.CategoryScience, "2024-09-10")

	path := func(search, category, mode string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if category != "" {
			v.Add("category", category)
		}
		if mode != "" {
			v.Add("view", mode)
		}
		return "/v1/activities?" + v.Encode()
	}
	table := func(acts ...activity.Activity) []byte {
		return marchallObj(t, view.Layout[activity.Activity]{Mode: view.ModeTable, Total: len(acts), Records: acts})
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/activities", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Get all", path: "/v1/activities", token: app.token, wantData: table(sports, fair, club)},
		{name: "category=all", path: path("", "all", ""), token: app.token, wantData: table(sports, fair, club)},
		{name: "category (no match)", path: path("", activity.CategoryArt, ""), token: app.token, wantData: table()},
		{name: "category", path: path("", activity.CategoryScience, ""), token: app.token, wantData: table(fair, club)},
		{name: "search (case-insensitive)", path: path("SCIENCE", "", ""), token: app.token, wantData: table(fair, club)},
		{name: "search (arabic)", path: path("رياضي", "", ""), token: app.token, wantData: table(sports)},
		{name: "search & category", path: path("fair", activity.CategoryScience, ""), token: app.token, wantData: table(fair)},
		{name: "search (unknown)", path: path("lol", "", ""), token: app.token, wantData: table()},
		{name: "view=table", path: path("", "", "table"), token: app.token, wantData: table(sports, fair, club)},
		{
			name: "view=calendar", path: path("", "", "calendar"), token: app.token,
			wantData: marchallObj(t, view.Layout[activity.Activity]{
				Mode:  view.ModeCalendar,
				Total: 3,
				Groups: []view.Group[activity.Activity]{
					{Key: "2024-09-02", Count: 1, Records: []activity.Activity{fair}},
					{Key: "2024-09-10", Count: 2, Records: []activity.Activity{sports, club}},
				},
			}),
		},
		{
			name: "view=calendar & filtered", path: path("club", "", "calendar"), token: app.token,
			wantData: marchallObj(t, view.Layout[activity.Activity]{
				Mode:   view.ModeCalendar,
				Total:  1,
				Groups: []view.Group[activity.Activity]{{Key: "2024-09-10", Count: 1, Records: []activity.Activity{club}}},
			}),
		},
		{
			name: "view (not this panel's)", path: path("", "", "summary"), token: app.token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"view": "must be one of: table, calendar"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		if tests[i].wantCode == 0 {
			tests[i].wantCode = http.StatusOK
		}
	}
	runHTTPTests(t, app, tests)

	assert.Equal(t, 3, app.activities.Len(), "listing must not change the store")
}

func Test_panelApi_categories(t *testing.T) {
	app := setup(t)

	addExam(t, app.exams, "Math", "5B", "2024-11-04", "08:00")
	addExam(t, app.exams, "Physics", "5A", "2024-11-05", "08:00")
	addExam(t, app.exams, "Arabic", "5B", "2024-11-06", "08:00")

	type categories struct {
		All        string   `json:"all"`
		Categories []string `json:"categories"`
	}
	tests := []httpTest{
		{
			name: "closed set", path: "/v1/activities/categories", token: app.token,
			wantData: marchallObj(t, categories{All: "all", Categories: activity.Categories}),
		},
		{
			name: "closed set (behavior)", path: "/v1/behavior-reports/categories", token: app.token,
			wantData: marchallObj(t, categories{All: "all", Categories: behavior.Types}),
		},
		{
			name: "open set", path: "/v1/exams/categories", token: app.token,
			wantData: marchallObj(t, categories{All: "all", Categories: []string{"5B", "5A"}}),
		},
		{
			name: "open set (empty)", path: "/v1/schedules/categories", token: app.token,
			wantData: marchallObj(t, categories{All: "all", Categories: []string{}}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].wantCode = http.StatusOK
	}
	runHTTPTests(t, app, tests)
}

func Test_panelApi_create(t *testing.T) {
	app := setup(t)

	required := "this field is required"
	tests := []struct {
		httpTest
		wantLen int
	}{
		{
			httpTest: httpTest{
				name: "Auth required", body: []byte(`{}`), wantCode: http.StatusUnauthorized,
				wantData: marchallObj(t, errMissingToken),
			},
		},
		{
			httpTest: httpTest{
				name: "empty", body: []byte(`{}`), token: app.token, wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{
					"title":       required,
					"description": required,
					"category":    required,
					"date":        required,
					"time":        required,
					"location":    required,
				}),
			},
		},
		{
			httpTest: httpTest{
				name: "blank fields", token: app.token, wantCode: http.StatusBadRequest,
				body: []byte(`{"title": "  ", "description": "d", "category": "فنية", "date": "2024-09-01", "time": "10:00", "location": " "}`),
				wantData: marchallObj(t, map[string]string{"title": required, "location": required}),
			},
		},
		{
			httpTest: httpTest{
				name: "bad date & time", token: app.token, wantCode: http.StatusBadRequest,
				body: []byte(`{"title": "t", "description": "d", "category": "فنية", "date": "01/09/2024", "time": "10h", "location": "l"}`),
				wantData: marchallObj(t, map[string]string{
					"date": "must be a date formatted as YYYY-MM-DD",
					"time": "must be a time formatted as HH:MM",
				}),
			},
		},
		{
			httpTest: httpTest{
				name: "malformed json", body: []byte(`{"title": `), token: app.token, wantCode: http.StatusBadRequest,
			},
		},
		{
			httpTest: httpTest{
				name: "valid", token: app.token, wantCode: http.StatusCreated,
				body: []byte(`{"id": "act-1", "title": " معرض فني ", "description": "لوحات الطلاب", "category": "فنية", "date": "2024-09-01", "time": "10:00", "location": "المكتبة"}`),
			},
			wantLen: 1,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/activities"

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt.httpTest, rec)
			assert.Equal(t, tt.wantLen, app.activities.Len())

			if rec.Code == http.StatusCreated {
				acts := app.activities.List()
				ok, _ := jsonBytesEqual(rec.Body.Bytes(), marchallObj(t, acts[0]))
				assert.True(t, ok, rec.Body.String())
				assert.Equal(t, "معرض فني", acts[0].Title)
				assert.NotEqual(t, "act-1", acts[0].ID, "ids are generated")
				assert.True(t, strings.HasPrefix(acts[0].ID, "act-"))
			}
		})
	}
}

func Test_panelApi_update(t *testing.T) {
	app := setup(t)

	math := addExam(t, app.exams, "Math", "5A", "2024-11-04", "08:00")
	physics := addExam(t, app.exams, "Physics", "5B", "2024-11-05", "08:00")

	moved := math
	moved.Room = "Hall C"
	moved.Duration = 120

	tests := []httpTest{
		{name: "Auth required", path: "/v1/exams/" + math.ID, body: []byte(`{}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "unknown id", path: "/v1/exams/exam-0", body: []byte(`{}`), token: app.token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{
			name: "invalid duration", path: "/v1/exams/" + math.ID, body: []byte(`{"duration": -5}`), token: app.token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"duration": "duration must be greater than 0"}),
		},
		{
			name: "cleared field", path: "/v1/exams/" + math.ID, body: []byte(`{"subject": ""}`), token: app.token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"subject": "this field is required"}),
		},
		{
			name: "merge", path: "/v1/exams/" + math.ID, body: []byte(`{"id": "exam-42", "room": "Hall C", "duration": 120}`), token: app.token,
			wantCode: http.StatusOK, wantData: marchallObj(t, moved),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPut
	}
	runHTTPTests(t, app, tests)

	assert.Equal(t, []exam.Exam{moved, physics}, app.exams.List())
}

func Test_panelApi_bodyOnly(t *testing.T) {
	app := setup(t)
	math := addExam(t, app.exams, "Math", "5A", "2024-11-04", "08:00")

	renamed := math
	renamed.Subject = "Algebra"

	tests := []httpTest{
		{
			name: "create ignores query", method: http.MethodPost, token: app.token,
			path:     "/v1/activities?title=Injected&location=Roof",
			body:     []byte(`{"description": "d", "category": "فنية", "date": "2024-09-01", "time": "10:00"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field is required", "location": "this field is required"}),
		},
		{
			name: "update ignores query", method: http.MethodPut, token: app.token,
			path:     "/v1/exams/" + math.ID + "?room=HACK&duration=abc&subject=Injected",
			body:     []byte(`{"subject": "Algebra"}`),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, renamed),
		},
	}
	runHTTPTests(t, app, tests)

	assert.Equal(t, 0, app.activities.Len())
	assert.Equal(t, []exam.Exam{renamed}, app.exams.List())
}

func Test_panelApi_retrieveAndDestroy(t *testing.T) {
	app := setup(t)

	good, err := app.reports.Add(behavior.Report{
		StudentName: "أحمد علي",
		ClassName:   "5A",
		Type:        behavior.TypePositive,
		Description: "ساعد زملاءه",
		Action:      "شهادة تقدير",
		Date:        "2024-09-03",
	})
	if err != nil {
		t.Fatalf("Add(): %v", err)
	}
	path := "/v1/behavior-reports/" + good.ID

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "retrieve", method: http.MethodGet, path: path, token: app.token, wantCode: http.StatusOK, wantData: marchallObj(t, good)},
		{name: "destroy", method: http.MethodDelete, path: path, token: app.token, wantCode: http.StatusNoContent},
		{name: "retrieve (deleted)", method: http.MethodGet, path: path, token: app.token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
		{name: "destroy (deleted)", method: http.MethodDelete, path: path, token: app.token, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})},
	}
	runHTTPTests(t, app, tests)

	assert.Equal(t, 0, app.reports.Len())
}

func Test_panelApi_alternateViews(t *testing.T) {
	app := setup(t)

	late := addExam(t, app.exams, "Math", "5A", "2024-11-06", "08:00")
	early := addExam(t, app.exams, "Physics", "5B", "2024-11-04", "10:00")
	earlier := addExam(t, app.exams, "Arabic", "5B", "2024-11-04", "08:00")

	report := func(typ string) behavior.Report {
		r, err := app.reports.Add(behavior.Report{StudentName: "s", ClassName: "5A", Type: typ, Description: "d", Action: "a", Date: "2024-09-03"})
		if err != nil {
			t.Fatalf("Add(): %v", err)
		}
		return r
	}
	neg1, neg2 := report(behavior.TypeNegative), report(behavior.TypeNegative)

	tests := []httpTest{
		{
			name: "exams timeline", path: "/v1/exams?view=timeline", token: app.token,
			wantData: marchallObj(t, view.Layout[exam.Exam]{Mode: view.ModeTimeline, Total: 3, Records: []exam.Exam{earlier, early, late}}),
		},
		{
			name: "exams timeline (class)", path: "/v1/exams?view=timeline&category=5B", token: app.token,
			wantData: marchallObj(t, view.Layout[exam.Exam]{Mode: view.ModeTimeline, Total: 2, Records: []exam.Exam{earlier, early}}),
		},
		{
			name: "behavior summary", path: "/v1/behavior-reports?view=SUMMARY", token: app.token,
			wantData: marchallObj(t, view.Layout[behavior.Report]{
				Mode:  view.ModeSummary,
				Total: 2,
				Groups: []view.Group[behavior.Report]{
					{Key: behavior.TypeNegative, Count: 2, Records: []behavior.Report{neg1, neg2}},
				},
				Counts: []view.CategoryCount{
					{Category: behavior.TypePositive, Count: 0},
					{Category: behavior.TypeNegative, Count: 2},
				},
			}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodGet
		tests[i].wantCode = http.StatusOK
	}
	runHTTPTests(t, app, tests)
}

func TestMetrics(t *testing.T) {
	app := setup(t)
	addActivity(t, app.activities, "Chess", activity.CategoryCulture, "2024-09-01")

	rec := app.do(newRequest(http.MethodGet, "/metrics"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `madrasa_records{panel="activities"} 1`)
}
