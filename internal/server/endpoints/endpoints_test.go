package endpoints

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/whitewolf2000ani/sdx/internal/api"
	"github.com/whitewolf2000ani/sdx/internal/providers"
	"github.com/whitewolf2000ani/sdx/internal/svcctx"
	"github.com/whitewolf2000ani/sdx/internal/testutil"
)

const (
	diagnosisDoc = `{"summary":"Findings consistent with acute pancreatitis. Gallstone etiology suspected.","conditions":[{"display":"Acute pancreatitis","code":"K85.9","certainty":"provisional"}],"investigations":["Serum lipase","Abdominal ultrasound"]}`
	treatmentDoc = `{"summary":"NPO with IV fluid resuscitation. Analgesia titrated to effect.","medications":[{"name":"Ringer lactate","dosage":"250ml/h","frequency":"continuous"}]}`
	optionsDoc   = `{"summary":"Candidate investigations ordered by yield. Imaging follows labs.","options":["Serum lipase","Abdominal CT with contrast"]}`
)

// newTestHandler builds the full route table over the given services,
// the way the server wires it.
func newTestHandler(svc *svcctx.Services) http.Handler {
	registry := api.NewRegistry()
	for _, ep := range All(Config{}) {
		registry.Register(ep)
	}

	mux := http.NewServeMux()
	registry.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc { return next })

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), svc)))
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func uploadFile(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/artifacts/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHandler(testutil.NewServices(providers.NewMockClient()))

	var resp HealthResponse
	rec := doJSON(t, h, "GET", "/health", nil, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q", resp.Status)
	}
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("ready with store", func(t *testing.T) {
		h := newTestHandler(testutil.NewServices(providers.NewMockClient()))
		rec := doJSON(t, h, "GET", "/ready", nil, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("degraded without store", func(t *testing.T) {
		h := newTestHandler(&svcctx.Services{Logger: testutil.Logger()})
		rec := doJSON(t, h, "GET", "/ready", nil, nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestArtifactEndpoints(t *testing.T) {
	h := newTestHandler(testutil.NewServices(providers.NewMockClient()))

	rec := uploadFile(t, h, "note.txt", "Epigastric pain radiating to the back.")
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created Artifact
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal upload response: %v", err)
	}
	if created.ID == "" || created.Kind != "text" {
		t.Errorf("created = %+v", created)
	}
	if created.SizeBytes == 0 {
		t.Error("SizeBytes should be set")
	}

	t.Run("get by id", func(t *testing.T) {
		var got Artifact
		rec := doJSON(t, h, "GET", "/api/artifacts/"+created.ID, nil, &got)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got.ID != created.ID {
			t.Errorf("ID = %q, want %q", got.ID, created.ID)
		}
	})

	t.Run("get missing id", func(t *testing.T) {
		rec := doJSON(t, h, "GET", "/api/artifacts/does-not-exist", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		var got []Artifact
		rec := doJSON(t, h, "GET", "/api/artifacts", nil, &got)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(got) != 1 {
			t.Errorf("list = %d artifacts, want 1", len(got))
		}
	})

	t.Run("unsupported media type", func(t *testing.T) {
		rec := uploadFile(t, h, "archive.zip", "PK\x03\x04rest-of-zip")
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", rec.Code)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		rec := uploadFile(t, h, "empty.txt", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestSchemaEndpoints(t *testing.T) {
	h := newTestHandler(testutil.NewServices(providers.NewMockClient()))

	t.Run("list", func(t *testing.T) {
		var got []SchemaInfo
		rec := doJSON(t, h, "GET", "/api/schemas", nil, &got)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(got) != 3 {
			t.Errorf("got %d schemas, want 3", len(got))
		}
	})

	t.Run("get", func(t *testing.T) {
		var got SchemaInfo
		rec := doJSON(t, h, "GET", "/api/schemas/diagnostic-report", nil, &got)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got.Kind != "diagnosis" || len(got.Schema) == 0 {
			t.Errorf("got = %+v", got)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := doJSON(t, h, "GET", "/api/schemas/unknown", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestRunPipelineEndpoint(t *testing.T) {
	client := &providers.MockClient{Responses: []string{diagnosisDoc, treatmentDoc, optionsDoc}}
	svc := testutil.NewServices(client)
	h := newTestHandler(svc)

	rec := uploadFile(t, h, "note.txt", "54-year-old male with epigastric pain radiating to the back.")
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", rec.Code)
	}
	var created Artifact
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal upload response: %v", err)
	}

	var runResp RunPipelineResponse
	rec = doJSON(t, h, "POST", "/api/pipeline/run", RunPipelineRequest{
		Session:     "session-1",
		ArtifactIDs: []string{created.ID},
	}, &runResp)
	if rec.Code != http.StatusOK {
		t.Fatalf("run status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if runResp.Record == nil || runResp.Record.Status != "complete" {
		t.Fatalf("record = %+v, want complete", runResp.Record)
	}
	if len(runResp.Fragments) != 3 {
		t.Errorf("fragments = %d, want 3", len(runResp.Fragments))
	}

	t.Run("records list and get", func(t *testing.T) {
		var sessions SessionsResponse
		rec := doJSON(t, h, "GET", "/api/records", nil, &sessions)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(sessions.Sessions) != 1 || sessions.Sessions[0] != "session-1" {
			t.Errorf("sessions = %v", sessions.Sessions)
		}

		var recResp RecordResponse
		rec = doJSON(t, h, "GET", "/api/records/session-1", nil, &recResp)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if recResp.Version != 1 || recResp.Status != "complete" {
			t.Errorf("record = %+v", recResp)
		}
		if !strings.Contains(string(recResp.Payload), "Acute pancreatitis") {
			t.Error("payload missing extracted content")
		}
	})

	t.Run("replies by request", func(t *testing.T) {
		var frag FragmentSummary
		for _, f := range runResp.Fragments {
			if f.SchemaID == "diagnostic-report" {
				frag = f
			}
		}
		if len(frag.ReplyIDs) == 0 {
			t.Fatal("diagnostic fragment has no reply ids")
		}

		var reply Reply
		rec := doJSON(t, h, "GET", "/api/replies/"+frag.ReplyIDs[0], nil, &reply)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if reply.Tag != "initial" {
			t.Errorf("Tag = %q, want initial", reply.Tag)
		}
		if reply.Content != diagnosisDoc {
			t.Error("reply content is not the verbatim model output")
		}

		var list []Reply
		rec = doJSON(t, h, "GET", "/api/replies?request="+reply.RequestID, nil, &list)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(list) != 1 {
			t.Errorf("got %d replies, want 1", len(list))
		}
	})

	t.Run("bad requests", func(t *testing.T) {
		rec := doJSON(t, h, "POST", "/api/pipeline/run", RunPipelineRequest{ArtifactIDs: []string{"x"}}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("missing session: status = %d, want 400", rec.Code)
		}

		rec = doJSON(t, h, "POST", "/api/pipeline/run", RunPipelineRequest{
			Session:     "s",
			ArtifactIDs: []string{created.ID},
			Schemas:     []string{"bogus"},
		}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("bad schema: status = %d, want 400", rec.Code)
		}
	})
}
