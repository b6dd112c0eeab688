package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/jmrh-portal/internal/domain"
	"github.com/prn-tf/jmrh-portal/internal/service"
)

func TestSubmitPaper(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	author := ts.author(t, "ada@example.org")

	w := ts.do(t, request{method: http.MethodPost, path: "/submit-paper", actor: author, form: url.Values{
		"title":      {"On Engines"},
		"abstract":   {"Notes on the analytical engine."},
		"discipline": {"Computing"},
	}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	papers := ts.store.PapersByAuthor(author.ID)
	require.Len(t, papers, 1)
	assert.Equal(t, domain.PaperSubmitted, papers[0].Status)
	assert.Equal(t, "/submit-paper/"+papers[0].ID, w.Header().Get("Location"))

	w = ts.do(t, request{path: "/submit-paper/" + papers[0].ID, actor: author})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "On Engines")
	assert.Contains(t, w.Body.String(), "Submitted")

	w = ts.do(t, request{path: "/submit-paper", actor: author})
	assert.Contains(t, w.Body.String(), "/submit-paper/"+papers[0].ID)
}

func TestSubmitPaper_Invalid(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	author := ts.author(t, "ada@example.org")

	w := ts.do(t, request{method: http.MethodPost, path: "/submit-paper", actor: author, form: url.Values{
		"title":    {"Kept title"},
		"abstract": {"Abstract"},
	}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "discipline is required")
	assert.Contains(t, w.Body.String(), `value="Kept title"`)
	assert.Empty(t, ts.store.Papers())
}

func TestPaperStatus_NotVisible(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	author := ts.author(t, "ada@example.org")
	other := ts.author(t, "grace@example.org")
	paper, err := ts.subs.Submit(context.Background(), author, service.SubmitInput{Title: "Mine", Abstract: "A", Discipline: "D"})
	require.NoError(t, err)

	for _, id := range []string{paper.ID, "missing"} {
		w := ts.do(t, request{path: "/submit-paper/" + id, actor: other})
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/submit-paper", w.Header().Get("Location"))
		assert.NotNil(t, responseCookie(w, flashCookieName))
	}
}

func TestManuscript(t *testing.T) {
	ts := newTestServer(t, serverOptions{files: &MockFileResolver{}})
	author := ts.author(t, "ada@example.org")

	withFile, err := ts.subs.Submit(context.Background(), author, service.SubmitInput{
		Title: "With file", Abstract: "A", Discipline: "D",
		ManuscriptPath: "manuscripts/" + author.ID + "/2026/10/paper.pdf",
	})
	require.NoError(t, err)
	withoutFile, err := ts.subs.Submit(context.Background(), author, service.SubmitInput{Title: "No file", Abstract: "A", Discipline: "D"})
	require.NoError(t, err)

	w := ts.do(t, request{path: "/submit-paper/" + withFile.ID + "/manuscript", actor: author})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://s3.example.org/get/manuscripts/"+author.ID+"/2026/10/paper.pdf", w.Header().Get("Location"))

	w = ts.do(t, request{path: "/submit-paper/" + withoutFile.ID + "/manuscript", actor: author})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/submit-paper/"+withoutFile.ID, w.Header().Get("Location"))
}

func TestUploadURL(t *testing.T) {
	tests := []struct {
		name   string
		files  service.FileResolver
		body   string
		status int
	}{
		{name: "presigned", files: &MockFileResolver{}, body: `{"filename":"paper.pdf"}`, status: http.StatusOK},
		{name: "unsupported file", files: &MockFileResolver{}, body: `{"filename":"paper.exe"}`, status: http.StatusBadRequest},
		{name: "missing filename", files: &MockFileResolver{}, body: `{}`, status: http.StatusBadRequest},
		{name: "storage disabled", files: nil, body: `{"filename":"paper.pdf"}`, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, serverOptions{files: tt.files})
			author := ts.author(t, "ada@example.org")

			w := ts.do(t, request{method: http.MethodPost, path: "/submit-paper/upload-url", actor: author, json: tt.body})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.status == http.StatusOK {
				assert.True(t, strings.HasPrefix(body["key"].(string), "manuscripts/"+author.ID+"/"))
				assert.Equal(t, "application/pdf", body["contentType"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestAccount(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	author := ts.author(t, "ada@example.org")

	w := ts.do(t, request{method: http.MethodPost, path: "/account", actor: author, form: url.Values{
		"action": {"profile"},
		"name":   {"Ada King"},
	}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	updated, _ := ts.store.UserByID(author.ID)
	assert.Equal(t, "Ada King", updated.Name)

	w = ts.do(t, request{method: http.MethodPost, path: "/account", actor: author, form: url.Values{
		"action":       {"password"},
		"old_password": {"wrong-password"},
		"new_password": {"new-password-1"},
	}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, request{method: http.MethodPost, path: "/account", actor: author, form: url.Values{
		"action":       {"password"},
		"old_password": {"password123"},
		"new_password": {"new-password-1"},
	}})
	assert.Equal(t, http.StatusSeeOther, w.Code)

	_, err := ts.accounts.Login(context.Background(), service.LoginInput{Email: "ada@example.org", Password: "new-password-1"})
	assert.NoError(t, err)
}
