package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func pngImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, height/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func faceServer(t *testing.T, resp faceResponse, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
		} else {
			_, _ = io.Copy(io.Discard, file)
			if ct := header.Header.Get("Content-Type"); ct != "image/png" && ct != "image/jpeg" {
				t.Errorf("part content type = %q", ct)
			}
		}

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte("model not loaded"))
			return
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_Detect(t *testing.T) {
	srv := faceServer(t, faceResponse{
		FacesCount: 2,
		Faces: []faceDetection{
			{FaceIndex: 0, Dim: 3, Embedding: []float32{0.1, 0.2, 0.3}, BBox: []float64{10, 20, 50, 80}, DetScore: 0.99},
			{FaceIndex: 1, Dim: 3, Embedding: []float32{0.4, 0.5, 0.6}, BBox: []float64{60, 20, 90, 70}, DetScore: 0.87},
		},
	}, http.StatusOK)
	defer srv.Close()

	c := NewClient(srv.URL+"/", 3)
	faces, err := c.Detect(context.Background(), pngImage(t, 100, 100))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("Detect() returned %d faces, want 2", len(faces))
	}
	if faces[0].Location.Left != 10 || faces[0].Location.Bottom != 80 {
		t.Errorf("faces[0].Location = %+v", faces[0].Location)
	}
	if faces[1].Descriptor[2] != 0.6 {
		t.Errorf("faces[1].Descriptor = %v", faces[1].Descriptor)
	}
	if faces[0].Score != 0.99 {
		t.Errorf("faces[0].Score = %v", faces[0].Score)
	}
}

func TestClient_DetectScalesLocations(t *testing.T) {
	srv := faceServer(t, faceResponse{
		FacesCount: 1,
		Faces:      []faceDetection{{Embedding: []float32{1}, BBox: []float64{10, 10, 20, 20}}},
	}, http.StatusOK)
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	c.maxSize = 50

	faces, err := c.Detect(context.Background(), pngImage(t, 200, 100))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	// 200px wide image sent at 50px: factor 4.
	if faces[0].Location.Left != 40 || faces[0].Location.Right != 80 {
		t.Errorf("Location = %+v, want bbox scaled by 4", faces[0].Location)
	}
}

func TestClient_DetectNoFaces(t *testing.T) {
	srv := faceServer(t, faceResponse{}, http.StatusOK)
	defer srv.Close()

	faces, err := NewClient(srv.URL, 0).Detect(context.Background(), pngImage(t, 10, 10))
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(faces) != 0 {
		t.Errorf("Detect() = %d faces, want 0", len(faces))
	}
}

func TestClient_DetectErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := faceServer(t, faceResponse{}, http.StatusServiceUnavailable)
		defer srv.Close()

		_, err := NewClient(srv.URL, 0).Detect(context.Background(), pngImage(t, 10, 10))
		if err == nil || !strings.Contains(err.Error(), "503") {
			t.Errorf("Detect() error = %v, want status 503", err)
		}
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		srv := faceServer(t, faceResponse{
			Faces: []faceDetection{{Embedding: []float32{1, 2}, BBox: []float64{0, 0, 1, 1}}},
		}, http.StatusOK)
		defer srv.Close()

		_, err := NewClient(srv.URL, 128).Detect(context.Background(), pngImage(t, 10, 10))
		if !errors.Is(err, ErrUnexpectedDimension) {
			t.Errorf("Detect() error = %v, want ErrUnexpectedDimension", err)
		}
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := NewClient("http://127.0.0.1:1", 0).Detect(context.Background(), []byte("hello"))
		if !errors.Is(err, ErrInvalidImage) {
			t.Errorf("Detect() error = %v, want ErrInvalidImage", err)
		}
	})
}
