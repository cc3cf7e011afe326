package reporting

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderHTMLPostsMultipartDocument(t *testing.T) {
	var gotPath, gotFilename string
	var gotFields map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotFields = r.MultipartForm.Value
		_, header, err := r.FormFile("files")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotFilename = header.Filename
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	client := NewRendererClient(srv.URL)
	pdf, err := client.RenderHTML(context.Background(), "<html><body>journal</body></html>")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(pdf))
	require.Equal(t, "/forms/chromium/convert/html", gotPath)
	require.Equal(t, "index.html", gotFilename, "chromium route only renders index.html")
	require.Equal(t, "8.27", gotFields["paperWidth"][0])
	require.Equal(t, "11.7", gotFields["paperHeight"][0])
}

func TestRenderHTMLSurfacesRendererFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "renderer overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewRendererClient(srv.URL)
	_, err := client.RenderHTML(context.Background(), "<html></html>")
	require.ErrorContains(t, err, "503")
}
