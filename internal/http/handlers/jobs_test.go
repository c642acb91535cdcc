package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/blob/blobtest"
	"github.com/forgeq/dispatcher/internal/dispatcher"
	"github.com/forgeq/dispatcher/internal/dispatcher/gateway"
	"github.com/forgeq/dispatcher/internal/store/storetest"
)

func newTestJobsHandler(t *testing.T) (*JobsHandler, *storetest.Fake, *blobtest.Fake) {
	t.Helper()
	log := newTestLogger(t)
	st := storetest.New()
	bs := blobtest.New()
	gw := gateway.New(log, st, bs, gateway.Config{EventsMax: 50})
	return NewJobsHandler(log, gw, st, bs, 50), st, bs
}

func multipartUpload(t *testing.T, fieldName, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func TestJobsSubmitReturnsQueuedJob(t *testing.T) {
	h, _, _ := newTestJobsHandler(t)
	body, contentType := multipartUpload(t, "file", "cat.jpg", "hello")

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	h.Submit(c)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID == "" || resp.Status != string(dispatcher.JobQueued) {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestJobsSubmitWithoutFileIsBadRequest(t *testing.T) {
	h, _, _ := newTestJobsHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	h.Submit(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a submission with no file, got %d", rec.Code)
	}
}

func TestJobsGetReturnsJobAndEvents(t *testing.T) {
	h, st, _ := newTestJobsHandler(t)
	body, contentType := multipartUpload(t, "file", "cat.jpg", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	h.Submit(c)
	var submitResp struct{ ID string `json:"id"` }
	_ = json.Unmarshal(rec.Body.Bytes(), &submitResp)

	getReq := httptest.NewRequest(http.MethodGet, "/api/jobs/"+submitResp.ID, nil)
	getRec := httptest.NewRecorder()
	getCtx, _ := gin.CreateTestContext(getRec)
	getCtx.Request = getReq
	getCtx.Params = gin.Params{{Key: "id", Value: submitResp.ID}}
	h.Get(getCtx)

	if getRec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", getRec.Code, getRec.Body.String())
	}
	var got struct {
		Job    *dispatcher.Job    `json:"job"`
		Events []dispatcher.Event `json:"events"`
	}
	if err := json.Unmarshal(getRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if got.Job == nil || got.Job.ID != submitResp.ID {
		t.Fatalf("unexpected job in response: %+v", got.Job)
	}
	if len(got.Events) != 1 {
		t.Fatalf("expected one queued event, got %d", len(got.Events))
	}
	_ = st
}

func TestJobsGetUnknownIDIsNotFound(t *testing.T) {
	h, _, _ := newTestJobsHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown job, got %d", rec.Code)
	}
}

func TestJobsCancelMarksQueuedJobCanceled(t *testing.T) {
	h, st, _ := newTestJobsHandler(t)
	body, contentType := multipartUpload(t, "file", "cat.jpg", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = req
	h.Submit(c)
	var submitResp struct{ ID string `json:"id"` }
	_ = json.Unmarshal(rec.Body.Bytes(), &submitResp)

	cancelReq := httptest.NewRequest(http.MethodPost, "/api/jobs/"+submitResp.ID+"/cancel", nil)
	cancelRec := httptest.NewRecorder()
	cancelCtx, _ := gin.CreateTestContext(cancelRec)
	cancelCtx.Request = cancelReq
	cancelCtx.Params = gin.Params{{Key: "id", Value: submitResp.ID}}
	h.Cancel(cancelCtx)

	if cancelRec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", cancelRec.Code, cancelRec.Body.String())
	}
	job, err := st.GetJob(c.Request.Context(), submitResp.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != dispatcher.JobCanceled {
		t.Fatalf("expected job canceled, got %q", job.Status)
	}
}

func TestJobsListFiltersByStatus(t *testing.T) {
	h, st, _ := newTestJobsHandler(t)
	for i := 0; i < 2; i++ {
		body, contentType := multipartUpload(t, "file", "cat.jpg", "hello")
		req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = req
		h.Submit(c)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/jobs?status=queued", nil)
	listRec := httptest.NewRecorder()
	listCtx, _ := gin.CreateTestContext(listRec)
	listCtx.Request = listReq
	h.List(listCtx)

	if listRec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", listRec.Code, listRec.Body.String())
	}
	var got struct {
		Items []*dispatcher.Job `json:"items"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected two queued jobs, got %d", len(got.Items))
	}
	_ = st
}
