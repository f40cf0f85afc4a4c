package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/session"
	"github.com/KaramelBytes/dqv-cli/internal/table"
)

func newTestServer(t *testing.T, opt table.LoadOptions) *httptest.Server {
	t.Helper()
	store := session.NewStore(4, opt)
	srv := New(store, Options{
		Outliers: analysis.OutlierOptions{Method: analysis.MethodZScore, Threshold: analysis.DefaultZThreshold},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, ts *httptest.Server, name, body string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	resp, err := http.Post(ts.URL+"/sessions", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createSession(t *testing.T, ts *httptest.Server, name, body string) string {
	t.Helper()
	resp := upload(t, ts, name, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode(t, resp)
	info := out["session"].(map[string]any)
	id, _ := info["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func spikeCSV() string {
	var b strings.Builder
	b.WriteString("v,label\n")
	for i := 1; i <= 19; i++ {
		fmt.Fprintf(&b, "%d,r%d\n", i, i)
	}
	b.WriteString("1000,spike\n")
	return b.String()
}

func TestUploadAndProfile(t *testing.T) {
	ts := newTestServer(t, table.DefaultLoadOptions())
	id := createSession(t, ts, "people.csv", "name,age\nAda,36\nAda,36\nLin,\n")

	resp := get(t, ts.URL+"/sessions/"+id)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	p := out["profile"].(map[string]any)
	assert.EqualValues(t, 3, p["rows"])
	assert.EqualValues(t, 2, p["columns"])
	assert.EqualValues(t, 1, p["null_cells"])
	assert.EqualValues(t, 1, p["duplicate_rows"])
}

func TestUploadErrors(t *testing.T) {
	opt := table.DefaultLoadOptions()
	ts := newTestServer(t, opt)

	resp := upload(t, ts, "notes.txt", "a,b\n1,2\n")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = upload(t, ts, "latin.csv", "name\ncaf\xe9\n")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = upload(t, ts, "empty.csv", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err := http.Post(ts.URL+"/sessions", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// failed uploads leave no session behind
	resp = get(t, ts.URL+"/sessions")
	out := decode(t, resp)
	assert.Empty(t, out["sessions"])
}

func TestFailedUploadKeepsSessionsWhenFull(t *testing.T) {
	ts := newTestServer(t, table.DefaultLoadOptions())
	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, createSession(t, ts, fmt.Sprintf("d%d.csv", i), "a\n1\n"))
	}

	resp := upload(t, ts, "bad.csv", "name\ncaf\xe9\n")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	for _, id := range ids {
		r := get(t, ts.URL+"/sessions/"+id)
		assert.Equal(t, http.StatusOK, r.StatusCode, id)
	}

	// a successful upload still evicts the oldest
	createSession(t, ts, "d4.csv", "a\n1\n")
	r := get(t, ts.URL+"/sessions/"+ids[0])
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
}

func TestUploadTooLarge(t *testing.T) {
	opt := table.DefaultLoadOptions()
	opt.MaxBytes = 8
	ts := newTestServer(t, opt)
	resp := upload(t, ts, "big.csv", "a,b\n1,2\n3,4\n5,6\n")
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestOutliersEndpoint(t *testing.T) {
	ts := newTestServer(t, table.DefaultLoadOptions())
	id := createSession(t, ts, "spike.csv", spikeCSV())

	resp := get(t, ts.URL+"/sessions/"+id+"/outliers?column=v")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.EqualValues(t, 1, out["count"])
	assert.EqualValues(t, 20, out["n"])
	rows := out["rows"].(map[string]any)
	assert.Equal(t, []any{"v", "label"}, rows["columns"])
	assert.Equal(t, []any{[]any{"1000", "spike"}}, rows["rows"])

	resp = get(t, ts.URL+"/sessions/"+id+"/outliers?column=v&threshold=1")
	out = decode(t, resp)
	assert.EqualValues(t, 1, out["count"])

	resp = get(t, ts.URL+"/sessions/"+id+"/outliers?column=v&method=mad")
	out = decode(t, resp)
	assert.Equal(t, "mad", out["method"])
	assert.EqualValues(t, analysis.DefaultMADThreshold, out["threshold"])

	resp = get(t, ts.URL+"/sessions/"+id+"/outliers?column=nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, ts.URL+"/sessions/"+id+"/outliers?column=label")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = get(t, ts.URL+"/sessions/"+id+"/outliers?threshold=-2")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSoftSignalsAreOK(t *testing.T) {
	ts := newTestServer(t, table.DefaultLoadOptions())
	id := createSession(t, ts, "one.csv", "x,name\n1,a\n2,b\n")

	resp := get(t, ts.URL+"/sessions/"+id+"/correlations")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.NotNil(t, out["undefined"])

	resp = get(t, ts.URL+"/sessions/"+id+"/coordinates")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out = decode(t, resp)
	assert.Equal(t, false, out["found"])

	text := createSession(t, ts, "text.csv", "name\na\nb\n")
	resp = get(t, ts.URL+"/sessions/"+text+"/outliers")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out = decode(t, resp)
	assert.Contains(t, out["note"], "No numerical columns")
}

func TestCoordinatesEndpoint(t *testing.T) {
	ts := newTestServer(t, table.DefaultLoadOptions())
	id := createSession(t, ts, "geo.csv", "city,lat,lon\nA,10.5,20.25\nB,,3\nC,-5,7\n")
	resp := get(t, ts.URL+"/sessions/"+id+"/coordinates")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, true, out["found"])
	assert.Equal(t, "lat", out["lat"])
	assert.EqualValues(t, 2, out["rows"])
	assert.EqualValues(t, 1, out["dropped"])
	pts := out["points"].(map[string]any)
	assert.Equal(t, []any{[]any{"10.5", "20.25"}, []any{"-5.0", "7.0"}}, pts["rows"])
}

func TestDistributionEndpoint(t *testing.T) {
	ts := newTestServer(t, table.DefaultLoadOptions())
	id := createSession(t, ts, "d.csv", "x\n1\n2\n3\n4\n")
	resp := get(t, ts.URL+"/sessions/"+id+"/distribution?column=x&bins=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, ts.URL+"/sessions/"+id+"/distribution?bins=zero")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCleanAndDownload(t *testing.T) {
	ts := newTestServer(t, table.DefaultLoadOptions())
	id := createSession(t, ts, "p.csv", "a,b\n1,x\n,y\n3,\n")

	resp, err := http.Post(ts.URL+"/sessions/"+id+"/clean?fix=drop-null", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	sum := out["summary"].(map[string]any)
	assert.EqualValues(t, 3, sum["rows_before"])
	assert.EqualValues(t, 1, sum["rows_after"])

	dl := get(t, ts.URL+"/sessions/"+id+"/download")
	require.Equal(t, http.StatusOK, dl.StatusCode)
	assert.True(t, strings.HasPrefix(dl.Header.Get("Content-Type"), "text/csv"))
	assert.Equal(t, `attachment; filename="cleaned_data.csv"`, dl.Header.Get("Content-Disposition"))
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,x\n", string(body))

	// analyses still see the upload
	resp = get(t, ts.URL+"/sessions/"+id)
	p := decode(t, resp)["profile"].(map[string]any)
	assert.EqualValues(t, 3, p["rows"])

	bad, err := http.Post(ts.URL+"/sessions/"+id+"/clean?fix=shuffle", "", nil)
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestDeleteAndNotFound(t *testing.T) {
	ts := newTestServer(t, table.DefaultLoadOptions())
	id := createSession(t, ts, "p.csv", "a\n1\n")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/sessions/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	for _, path := range []string{"", "/outliers", "/correlations", "/download"} {
		r := get(t, ts.URL+"/sessions/"+id+path)
		assert.Equal(t, http.StatusNotFound, r.StatusCode, path)
	}
}

func TestReportMarkdown(t *testing.T) {
	ts := newTestServer(t, table.DefaultLoadOptions())
	id := createSession(t, ts, "spike.csv", spikeCSV())
	resp := get(t, ts.URL+"/sessions/"+id+"/report?format=markdown")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "[DATASET SUMMARY]")
}
