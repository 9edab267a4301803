package tests

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/madrasa/core/schedule"
	"github.com/trezcool/madrasa/core/view"
)

var pdf = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF")

func Test_scheduleApi(t *testing.T) {
	app := setup(t)

	uploadedAt := time.Date(2024, 9, 1, 8, 30, 0, 0, time.UTC)
	schedule.NowFunc = func() time.Time { return uploadedAt }
	defer func() { schedule.NowFunc = time.Now }()

	// documents cannot be set through the record body
	rec := app.do(newAuthRequest(http.MethodPost, "/v1/schedules", app.token, []byte(`{"class_name": "5A", "document": "schedules/evil", "size": 10}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create code = %v; body %s", rec.Code, rec.Body.String())
	}
	entry := app.schedules.Store().List()[0]
	assert.False(t, entry.Uploaded())
	assert.False(t, entry.Size.Valid)
	ok, _ := jsonBytesEqual(rec.Body.Bytes(), []byte(`{
		"id": "`+entry.ID+`", "class_name": "5A", "document": null, "document_name": null,
		"content_type": null, "size": null, "uploaded_at": null, "uploaded": false
	}`))
	assert.True(t, ok, rec.Body.String())

	docPath := "/v1/schedules/" + entry.ID + "/document"

	t.Run("download (not uploaded)", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, docPath, app.token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "no document uploaded"})}, rec)
	})

	t.Run("upload (auth required)", func(t *testing.T) {
		rec := app.do(newUploadRequest(t, docPath, "", "5A.pdf", "application/pdf", pdf))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("upload (missing file)", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodPut, docPath, app.token, []byte(`{}`)))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"document": "this field is required"})}, rec)
	})

	t.Run("upload (wrong type)", func(t *testing.T) {
		rec := app.do(newUploadRequest(t, docPath, app.token, "5A.txt", "text/plain", []byte("not a pdf")))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"document": "document type is not allowed"})}, rec)
	})

	t.Run("upload (disguised type)", func(t *testing.T) {
		rec := app.do(newUploadRequest(t, docPath, app.token, "5A.pdf", "application/pdf", []byte("<html><body>hi</body></html>")))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"document": "document type is not allowed"})}, rec)
	})

	t.Run("upload (too large)", func(t *testing.T) {
		big := append(append([]byte{}, pdf...), bytes.Repeat([]byte("0"), int(app.conf.Upload.MaxBytes))...)
		rec := app.do(newUploadRequest(t, docPath, app.token, "5A.pdf", "application/pdf", big))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"document": "document is too large"})}, rec)
	})

	t.Run("upload (over request limit)", func(t *testing.T) {
		huge := bytes.Repeat([]byte("0"), int(app.conf.Upload.MaxBytes)+128<<10)
		rec := app.do(newUploadRequest(t, docPath, app.token, "5A.pdf", "application/pdf", huge))
		checkCodeAndData(t, httpTest{wantCode: http.StatusRequestEntityTooLarge, wantData: marchallObj(t, httpErr{Error: "Request Entity Too Large"})}, rec)
	})

	assert.Equal(t, 0, app.blobs.Len(), "rejected documents are never stored")

	t.Run("upload", func(t *testing.T) {
		rec := app.do(newUploadRequest(t, docPath, app.token, "جدول 5A.pdf", "application/pdf", pdf))
		entry := app.schedules.Store().List()[0]
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, entry)}, rec)

		assert.True(t, entry.Uploaded())
		assert.Equal(t, "جدول 5A.pdf", entry.DocumentName.String)
		assert.Equal(t, "application/pdf", entry.ContentType.String)
		assert.Equal(t, int64(len(pdf)), entry.Size.Int64)
		assert.Equal(t, uploadedAt, entry.UploadedAt.Time)
		assert.Equal(t, 1, app.blobs.Len())
	})

	t.Run("re-upload replaces the document", func(t *testing.T) {
		before := app.schedules.Store().List()[0]
		rec := app.do(newUploadRequest(t, docPath, app.token, "5A-v2.pdf", "application/pdf", pdf))
		assert.Equal(t, http.StatusOK, rec.Code)

		after := app.schedules.Store().List()[0]
		assert.NotEqual(t, before.Document.String, after.Document.String)
		assert.Equal(t, "5A-v2.pdf", after.DocumentName.String)
		assert.Equal(t, 1, app.blobs.Len(), "previous document is deleted")
	})

	t.Run("update keeps the document", func(t *testing.T) {
		before := app.schedules.Store().List()[0]
		rec := app.do(newAuthRequest(http.MethodPut, "/v1/schedules/"+entry.ID, app.token, []byte(`{"class_name": "5B", "document": null}`)))
		assert.Equal(t, http.StatusOK, rec.Code)

		after := app.schedules.Store().List()[0]
		assert.Equal(t, "5B", after.ClassName)
		assert.Equal(t, before.Document, after.Document)
	})

	t.Run("grid", func(t *testing.T) {
		entries := app.schedules.Store().List()
		rec := app.do(newAuthRequest(http.MethodGet, "/v1/schedules?view=grid", app.token))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, view.Layout[schedule.Entry]{
				Mode:   view.ModeGrid,
				Total:  1,
				Groups: []view.Group[schedule.Entry]{{Key: "5B", Count: 1, Records: entries}},
			}),
		}, rec)
	})

	t.Run("download", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodGet, docPath, app.token))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "inline")
		assert.Equal(t, pdf, rec.Body.Bytes())
	})

	t.Run("detach", func(t *testing.T) {
		rec := app.do(newAuthRequest(http.MethodDelete, docPath, app.token))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, app.schedules.Store().List()[0].Uploaded())
		assert.Equal(t, 0, app.blobs.Len())

		rec = app.do(newAuthRequest(http.MethodDelete, docPath, app.token))
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "no document uploaded"})}, rec)
	})

	t.Run("destroy deletes the document", func(t *testing.T) {
		rec := app.do(newUploadRequest(t, docPath, app.token, "5A.pdf", "application/pdf", pdf))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, app.blobs.Len())

		rec = app.do(newAuthRequest(http.MethodDelete, "/v1/schedules/"+entry.ID, app.token))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 0, app.schedules.Store().Len())
		assert.Equal(t, 0, app.blobs.Len())

		rec = app.do(newUploadRequest(t, docPath, app.token, "5A.pdf", "application/pdf", pdf))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
